package markup

// Step represents a polymorphic segment of a reasoning chain. Concrete step
// types implement the unexported isStep marker enabling a closed set.
type Step interface{ isStep() }

// TextStep is a plain free-text reasoning segment.
type TextStep struct {
	Text string // Plain UTF-8 text, may contain embedded markup if the caller wants it passed through
}

// isStep implements the Step interface for TextStep.
func (TextStep) isStep() {}

// Interaction is one gadget call together with its resolved output. An
// Interaction appearing in a decoded chain is always resolved; unresolved
// calls exist only transiently inside raw markup as a gadget tag without a
// following output tag.
type Interaction struct {
	GadgetID string // Stable gadget identifier, matches the tag's id attribute
	Inputs   string // Raw text handed to the gadget
	Outputs  string // Raw text the gadget produced ("" when the output tag was absent or empty)
}

// isStep implements the Step interface for Interaction.
func (Interaction) isStep() {}

// Chain is an ordered reasoning trace. Order is significant: it represents
// the temporal sequence of free-text reasoning and gadget use.
type Chain []Step

// NumInteractions returns the number of gadget interactions in the chain.
func (c Chain) NumInteractions() int {
	n := 0
	for _, s := range c {
		if _, ok := s.(Interaction); ok {
			n++
		}
	}
	return n
}

// Example is a complete labeled instance: a chain plus its final result.
// It is plain immutable value data owned by whichever component built it.
type Example struct {
	Chain  Chain
	Result string
}
