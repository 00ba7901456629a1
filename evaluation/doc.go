// Package evaluation scores gadget-assisted generation output against
// labeled results. It provides a tolerant numeric comparator for final
// results, batch scoring over decoded reasoning chains and a percentile
// bootstrap for confidence intervals on accuracy.
package evaluation
