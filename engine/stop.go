package engine

import "github.com/hupe1980/gadgetmesh/model"

// SuffixStop is a model.StopCondition that triggers when the most recently
// produced token suffix of a row exactly matches a fixed token sequence
// (the tokenized gadget closing tag). It evaluates independently per row
// and records, per row, whether it triggered.
type SuffixStop struct {
	suffix    []int
	triggered []bool
}

// NewSuffixStop builds a suffix matcher for the given text.
func NewSuffixStop(tokenizer model.Tokenizer, text string) *SuffixStop {
	return &SuffixStop{suffix: tokenizer.Encode(text)}
}

// Reset clears the per-row trigger mask for a batch of n rows. Call before
// every generation step.
func (s *SuffixStop) Reset(n int) {
	s.triggered = make([]bool, n)
}

// Done implements the model.StopCondition interface.
func (s *SuffixStop) Done(row int, seq []int) bool {
	if len(s.suffix) == 0 || len(seq) < len(s.suffix) {
		return false
	}
	for i, id := range s.suffix {
		if seq[len(seq)-len(s.suffix)+i] != id {
			return false
		}
	}
	if row >= 0 && row < len(s.triggered) {
		s.triggered[row] = true
	}
	return true
}

// Triggered reports whether the condition fired for the given row during
// the last generation step.
func (s *SuffixStop) Triggered(row int) bool {
	return row >= 0 && row < len(s.triggered) && s.triggered[row]
}
