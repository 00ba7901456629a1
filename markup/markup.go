package markup

import (
	"regexp"
	"strings"

	"github.com/hupe1980/gadgetmesh/internal/textutil"
)

// Tag names of the three markup elements of the protocol.
const (
	GadgetTag = "gadget"
	OutputTag = "output"
	ResultTag = "result"
)

// resultSentence is the redundant human-readable phrasing some models are
// trained with in addition to the formal result tag.
const resultSentence = "Final result is "

var (
	resultTagPattern      = regexp.MustCompile(`(?i)<` + ResultTag + `>(.+?)</` + ResultTag + `>`)
	resultSentencePattern = regexp.MustCompile(`(?i)final result is (.+?)\.`)
)

// EncodeInput carries the mutually exclusive encode arguments. Exactly one
// of Chain or Example must be set; Result must accompany Chain (and only
// Chain). Result is a pointer so an absent result can be distinguished from
// an empty one.
type EncodeInput struct {
	Chain   Chain
	Result  *string
	Example *Example
}

// EncodeOptions configures markup serialization.
type EncodeOptions struct {
	// OmitTags skips interaction steps entirely, producing a tag-free
	// reading view of the chain's free text.
	OmitTags bool
	// AddResultSentence appends a redundant "Final result is <result>."
	// sentence before the formal result tag.
	AddResultSentence bool
}

// Encode serializes a chain (or labeled example) into protocol markup.
//
// Free-text steps are emitted verbatim, so embedded tags pass through
// unchanged if the caller wants that. Each interaction is emitted as an
// adjacent gadget/output tag pair separated by newlines; the grammar never
// allows a gadget tag without an immediately following output tag in
// encoded text.
func Encode(in EncodeInput, optFns ...func(o *EncodeOptions)) (string, error) {
	opts := EncodeOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if in.Example == nil && in.Chain == nil {
		return "", InputError("either example or chain must be provided")
	}
	if in.Example != nil && in.Chain != nil {
		return "", InputError("only one of example or chain can be provided")
	}
	if (in.Chain == nil) != (in.Result == nil) {
		return "", InputError("if chain is provided, result must be provided")
	}

	chain := in.Chain
	result := in.Result
	if in.Example != nil {
		chain = in.Example.Chain
		result = &in.Example.Result
	}

	var b strings.Builder
	for _, step := range chain {
		switch s := step.(type) {
		case TextStep:
			b.WriteString(s.Text)
		case Interaction:
			if opts.OmitTags {
				continue
			}
			b.WriteString("\n<" + GadgetTag + ` id="` + s.GadgetID + `">`)
			b.WriteString(s.Inputs)
			b.WriteString("</" + GadgetTag + ">\n")
			b.WriteString("<" + OutputTag + ">")
			b.WriteString(s.Outputs)
			b.WriteString("</" + OutputTag + ">\n")
		}
	}

	if result == nil {
		return b.String(), nil
	}

	if opts.AddResultSentence {
		b.WriteString(resultSentence)
		b.WriteString(*result)
		b.WriteString(".\n")
	}

	if opts.OmitTags {
		return b.String(), nil
	}

	var out strings.Builder
	out.WriteString(textutil.EnsureTrailingNewline(b.String()))
	out.WriteString("<" + ResultTag + ">")
	out.WriteString(*result)
	out.WriteString("</" + ResultTag + ">")
	return out.String(), nil
}

// EncodeExample is shorthand for Encode with a labeled example.
func EncodeExample(ex Example, optFns ...func(o *EncodeOptions)) (string, error) {
	return Encode(EncodeInput{Example: &ex}, optFns...)
}

// Decode parses protocol markup back into a chain and the final result.
//
// Whitespace-only fragments are dropped. A gadget tag's output is taken
// from its next sibling output tag; a missing sibling yields an empty
// output, any other sibling kind yields a *MalformedError. A standalone
// output tag is skipped (already consumed by its gadget tag). If several
// result tags occur, the last one wins. The returned result is the empty
// string sentinel when no result tag was found.
func Decode(s string) (Chain, string, error) {
	return DecodeNodes(Parse(s))
}

// DecodeNodes is Decode for an already parsed document.
func DecodeNodes(doc []Node) (Chain, string, error) {
	nodes := make([]Node, 0, len(doc))
	for _, n := range doc {
		if !n.IsWhitespace() {
			nodes = append(nodes, n)
		}
	}

	var chain Chain
	result := ""

	for i, n := range nodes {
		if n.Type == TextNode {
			chain = append(chain, TextStep{Text: strings.TrimSpace(n.Data)})
			continue
		}
		switch n.Data {
		case GadgetTag:
			id, _ := n.Attr("id")
			inter := Interaction{GadgetID: id, Inputs: strings.TrimSpace(n.Text)}
			if i+1 < len(nodes) {
				next := nodes[i+1]
				if next.Type != ElementNode {
					return nil, "", &MalformedError{Got: "text"}
				}
				if next.Data != OutputTag {
					return nil, "", &MalformedError{Got: next.Data}
				}
				inter.Outputs = strings.TrimSpace(next.Text)
			}
			chain = append(chain, inter)
		case OutputTag:
			// Already consumed by the preceding gadget tag.
		case ResultTag:
			if n.Text != "" {
				result = strings.TrimSpace(n.Text)
			}
		}
	}

	return chain, result, nil
}

// GetResult extracts a final-answer string from raw, possibly malformed
// model output. Three tiers of fallback, stopping at the first success:
//
//  1. Case-insensitive pattern search for <result>...</result> content.
//     A whitespace-only capture counts as a miss, like Decode treats an
//     empty result tag.
//  2. Full document parse, first result tag with non-empty trimmed text.
//  3. Case-insensitive search for the phrase "final result is <x>."
//     taking the last match and, when the capture contains '=', only the
//     portion before it (handles "final result is x = 5.").
//
// Absence of a result is a normal outcome, not a failure: the empty string
// sentinel is returned when every tier misses.
func GetResult(s string) string {
	if m := resultTagPattern.FindStringSubmatch(s); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			return text
		}
	}

	for _, n := range Parse(s) {
		if n.Type == ElementNode && n.Data == ResultTag {
			if text := strings.TrimSpace(n.Text); text != "" {
				return text
			}
			break
		}
	}

	return resultFromSentence(s)
}

// resultFromSentence is the last-resort extraction for outputs that never
// produced a result tag.
func resultFromSentence(s string) string {
	matches := resultSentencePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return ""
	}
	result := matches[len(matches)-1][1]
	result, _, _ = strings.Cut(result, "=")
	return strings.TrimSpace(result)
}

// StripTags returns only the top-level free text of the markup, dropping
// every tag together with its payload.
func StripTags(s string) string {
	var b strings.Builder
	for _, n := range Parse(s) {
		if n.Type == TextNode {
			b.WriteString(n.Data)
		}
	}
	return b.String()
}
