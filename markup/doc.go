// Package markup implements the wire protocol that lets a text generation
// model call external gadgets inline. It defines the chain data model
// (free-text steps interleaved with gadget interactions), the codec that
// converts between chains and their tagged text representation, and the
// tolerant result extraction used to pull a final answer out of raw,
// possibly malformed model output.
//
// The grammar has exactly three tag kinds:
//
//	<gadget id="calculator">2+2</gadget>
//	<output>4</output>
//	<result>4</result>
//
// A gadget tag is always followed (modulo whitespace) by its output tag in
// well-formed documents; the decoder tolerates a standalone output tag by
// skipping it. Newlines between tags are cosmetic, text content inside tags
// is the verbatim payload (trimmed on decode).
package markup
