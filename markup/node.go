package markup

import (
	"strings"
)

// NodeType discriminates parsed document nodes.
type NodeType int

const (
	// TextNode is a raw text fragment between tags.
	TextNode NodeType = iota
	// ElementNode is a tag with attributes and raw text content.
	ElementNode
)

// Attr is a single element attribute.
type Attr struct {
	Key   string
	Value string
}

// Node is one top-level item of a parsed markup document. The protocol
// grammar is flat: element content is raw text, elements never nest. A
// document is a plain []Node in document order, so sibling navigation is
// index arithmetic rather than pointer chasing.
type Node struct {
	Type  NodeType
	Data  string // text content for TextNode, lowercase tag name for ElementNode
	Attrs []Attr // element attributes, nil for text nodes
	Text  string // raw inner text for ElementNode
}

// Attr returns the value of the named attribute and whether it is present.
func (n Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IsWhitespace reports whether the node is a text fragment carrying no
// semantic content.
func (n Node) IsWhitespace() bool {
	return n.Type == TextNode && strings.TrimSpace(n.Data) == ""
}

// Parse splits s into a flat list of text and element nodes. Model output is
// frequently malformed, so Parse never fails: a '<' that does not start a
// well-formed tag is taken as literal text, an element with no matching
// closing tag swallows the rest of the input as its content, and a stray
// closing tag is dropped.
func Parse(s string) []Node {
	var nodes []Node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, Node{Type: TextNode, Data: text.String()})
			text.Reset()
		}
	}

	i := 0
	for i < len(s) {
		if s[i] != '<' {
			j := strings.IndexByte(s[i:], '<')
			if j < 0 {
				text.WriteString(s[i:])
				i = len(s)
				continue
			}
			text.WriteString(s[i : i+j])
			i += j
			continue
		}

		tag, next, ok := parseTag(s, i)
		if !ok {
			text.WriteByte('<')
			i++
			continue
		}
		flush()
		if tag.closing {
			// Stray closing tag without an opener, drop it.
			i = next
			continue
		}
		node := Node{Type: ElementNode, Data: tag.name, Attrs: tag.attrs}
		if tag.selfClosing {
			nodes = append(nodes, node)
			i = next
			continue
		}
		node.Text, i = readContent(s, next, tag.name)
		nodes = append(nodes, node)
	}
	flush()

	return nodes
}

// Render is the inverse of Parse for documents Parse produces. Text nodes
// and element payloads are emitted verbatim, without any escaping: the
// protocol carries raw gadget inputs and outputs as-is.
func Render(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.Type == TextNode {
			b.WriteString(n.Data)
			continue
		}
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(a.Value)
			b.WriteByte('"')
		}
		b.WriteByte('>')
		b.WriteString(n.Text)
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteByte('>')
	}
	return b.String()
}

type rawTag struct {
	name        string
	attrs       []Attr
	closing     bool
	selfClosing bool
}

// parseTag lexes a single tag starting at s[i] == '<'. It returns the tag,
// the index just past the closing '>', and whether the bytes formed a
// well-shaped tag at all.
func parseTag(s string, i int) (rawTag, int, bool) {
	var t rawTag
	j := i + 1
	if j < len(s) && s[j] == '/' {
		t.closing = true
		j++
	}

	start := j
	for j < len(s) && isNameByte(s[j], j == start) {
		j++
	}
	if j == start {
		return t, 0, false
	}
	t.name = strings.ToLower(s[start:j])

	for {
		for j < len(s) && isSpaceByte(s[j]) {
			j++
		}
		if j >= len(s) {
			return t, 0, false
		}
		switch s[j] {
		case '>':
			return t, j + 1, true
		case '/':
			if j+1 < len(s) && s[j+1] == '>' {
				t.selfClosing = true
				return t, j + 2, true
			}
			return t, 0, false
		case '<':
			return t, 0, false
		}
		if t.closing {
			// No attributes allowed on closing tags.
			return t, 0, false
		}
		key, value, next, ok := parseAttr(s, j)
		if !ok {
			return t, 0, false
		}
		t.attrs = append(t.attrs, Attr{Key: key, Value: value})
		j = next
	}
}

// parseAttr lexes one key, key=value, key="value" or key='value' pair.
func parseAttr(s string, i int) (key, value string, next int, ok bool) {
	j := i
	for j < len(s) && isNameByte(s[j], j == i) {
		j++
	}
	if j == i {
		return "", "", 0, false
	}
	key = strings.ToLower(s[i:j])
	if j >= len(s) || s[j] != '=' {
		return key, "", j, true
	}
	j++
	if j >= len(s) {
		return "", "", 0, false
	}
	if s[j] == '"' || s[j] == '\'' {
		quote := s[j]
		j++
		end := strings.IndexByte(s[j:], quote)
		if end < 0 {
			return "", "", 0, false
		}
		return key, s[j : j+end], j + end + 1, true
	}
	start := j
	for j < len(s) && !isSpaceByte(s[j]) && s[j] != '>' && s[j] != '<' {
		j++
	}
	return key, s[start:j], j, true
}

// readContent scans for the matching closing tag (case-insensitive,
// whitespace tolerated before '>') and returns the raw content plus the
// index just past the closer. A missing closer consumes the rest of s.
func readContent(s string, from int, name string) (string, int) {
	i := from
	for i < len(s) {
		j := strings.Index(s[i:], "</")
		if j < 0 {
			break
		}
		k := i + j + 2
		if len(s)-k >= len(name) && strings.EqualFold(s[k:k+len(name)], name) {
			m := k + len(name)
			for m < len(s) && isSpaceByte(s[m]) {
				m++
			}
			if m < len(s) && s[m] == '>' {
				return s[from : i+j], m + 1
			}
		}
		i = k
	}
	return s[from:], len(s)
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case first:
		return false
	case c >= '0' && c <= '9', c == '_', c == '-':
		return true
	default:
		return false
	}
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
