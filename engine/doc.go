// Package engine implements the suspend/resume control loop that drives
// batched, gadget-assisted text generation.
//
// The engine repeatedly asks an external generation primitive (model.StepModel)
// to extend each still-running row of a batch. A token-suffix stopping
// condition detects completed gadget call tags; for triggered rows the
// engine parses the accumulated text, invokes the named gadget from the
// per-call registry, splices the output tag back into the row and resumes
// generation. Rows terminate on an end-of-sequence marker or when the
// shared token budget is exhausted.
//
// # Row state machine
//
// Each batch row progresses independently through
//
//	generating -> gadget pending -> generating -> ... -> done
//
// where "done" is terminal, reached either by the end-of-sequence marker or
// by budget exhaustion. Rounds are strictly sequential (round n+1 depends
// on round n's spliced text); gadget invocations for different rows within
// one round run concurrently against the read-only registry.
//
// # Shared token budget
//
// The budget is shared across the whole batch, not allocated per row: the
// round-cutoff check uses the continuation length padded to the longest
// running row, so a short row can be cut off because another row in the
// same batch is longer.
package engine
