// Package gadget implements the callable tool subsystem that lets a
// generation model invoke external capabilities (calculators, lookups,
// side-effects) through inline markup, addressed by a stable identifier.
package gadget

import "sort"

// Gadget defines the interface for extending generation with external tools.
//
// A gadget is a free-form text transform: the controller hands it the raw
// text content of a gadget tag and splices whatever comes back into the
// stream as an output tag. Implementations should:
//   - Return a stable, unique ID (used as the tag's id attribute and the
//     registry key)
//   - Never panic or fail hard on malformed input; internal failures must
//     come back as a textual error description so the protocol stream
//     stays well-formed
//   - Be safe for concurrent calls, since different rows of a batch may
//     invoke the same gadget at the same time
type Gadget interface {
	// ID returns the unique identifier for this gadget.
	ID() string

	// Call executes the gadget on free-form text input and returns
	// free-form text output.
	Call(input string) string
}

// Registry maps gadget ids to instances. It is built once per generation
// call and is read-only afterwards, so lookups need no locking.
type Registry struct {
	gadgets map[string]Gadget
}

// NewRegistry builds a frozen registry from the enabled gadgets. A later
// gadget with a duplicate id replaces an earlier one.
func NewRegistry(gadgets ...Gadget) *Registry {
	m := make(map[string]Gadget, len(gadgets))
	for _, g := range gadgets {
		m[g.ID()] = g
	}
	return &Registry{gadgets: m}
}

// Get returns the gadget registered under id and whether it exists. A miss
// is not an error here: the generation controller recovers by splicing a
// visible error output into the stream.
func (r *Registry) Get(id string) (Gadget, bool) {
	g, ok := r.gadgets[id]
	return g, ok
}

// IDs returns all registered gadget ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.gadgets))
	for id := range r.gadgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered gadgets.
func (r *Registry) Len() int { return len(r.gadgets) }
