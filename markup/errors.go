package markup

import "fmt"

// InputError signals conflicting or missing encode arguments. It is raised
// at construction time and never recovered.
type InputError string

// Error implements the error interface for InputError.
func (e InputError) Error() string { return string(e) }

// MalformedError signals that a gadget tag was followed by something other
// than an output tag during decoding. Decoding aborts for the whole
// document; there is no partial-chain recovery.
type MalformedError struct {
	Got string // Name of the offending sibling node ("text" for a text fragment)
}

// Error implements the error interface for MalformedError.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("expected %s tag after %s tag, got '%s'", OutputTag, GadgetTag, e.Got)
}
