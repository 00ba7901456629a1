package gadget

// Func is a generic adapter that exposes a plain Go function as a gadget.
//
// Responsibilities:
//   - Carries the stable id used as the markup tag's id attribute
//   - Invokes the wrapped function on the raw tag payload
//
// Concurrency:
//
//	A Func has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines, provided the wrapped function is.
type Func struct {
	id string
	fn func(input string) string
}

// NewFunc constructs a gadget from an id and a text transform.
//
// Example:
//
//	echo := gadget.NewFunc("echo", func(input string) string {
//	  return input
//	})
func NewFunc(id string, fn func(input string) string) *Func {
	return &Func{id: id, fn: fn}
}

// ID implements the Gadget interface.
func (f *Func) ID() string { return f.id }

// Call implements the Gadget interface.
func (f *Func) Call(input string) string { return f.fn(input) }
