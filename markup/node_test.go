package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FlatDocument(t *testing.T) {
	doc := Parse("before\n<gadget id=\"calc\">2+2</gadget>\n<output>4</output>\nafter")

	require.Len(t, doc, 5)
	assert.Equal(t, Node{Type: TextNode, Data: "before\n"}, doc[0])
	assert.Equal(t, ElementNode, doc[1].Type)
	assert.Equal(t, "gadget", doc[1].Data)
	assert.Equal(t, "2+2", doc[1].Text)
	id, ok := doc[1].Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "calc", id)
	assert.Equal(t, "output", doc[3].Data)
	assert.Equal(t, "4", doc[3].Text)
	assert.Equal(t, Node{Type: TextNode, Data: "\nafter"}, doc[4])
}

func TestParse_AttributeQuoting(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double quotes", `<gadget id="calculator">x</gadget>`, "calculator"},
		{"single quotes", `<gadget id='calculator'>x</gadget>`, "calculator"},
		{"bare value", `<gadget id=calculator>x</gadget>`, "calculator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(tt.in)
			require.Len(t, doc, 1)
			got, ok := doc[0].Attr("id")
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_ValuelessAttribute(t *testing.T) {
	doc := Parse("<gadget disabled>x</gadget>")
	require.Len(t, doc, 1)
	v, ok := doc[0].Attr("disabled")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParse_LiteralAngleBrackets(t *testing.T) {
	doc := Parse("2 < 3 and 4 > 1")
	require.Len(t, doc, 1)
	assert.Equal(t, TextNode, doc[0].Type)
	assert.Equal(t, "2 < 3 and 4 > 1", doc[0].Data)
}

func TestParse_UnclosedTagSwallowsRest(t *testing.T) {
	doc := Parse("text <gadget id='x'>1+1 and everything after")
	require.Len(t, doc, 2)
	assert.Equal(t, "text ", doc[0].Data)
	assert.Equal(t, "gadget", doc[1].Data)
	assert.Equal(t, "1+1 and everything after", doc[1].Text)
}

func TestParse_StrayClosingTagDropped(t *testing.T) {
	doc := Parse("a</output>b")
	require.Len(t, doc, 2)
	assert.Equal(t, "a", doc[0].Data)
	assert.Equal(t, "b", doc[1].Data)
}

func TestParse_SelfClosingTag(t *testing.T) {
	doc := Parse("<gadget id='x'/>rest")
	require.Len(t, doc, 2)
	assert.Equal(t, "gadget", doc[0].Data)
	assert.Equal(t, "", doc[0].Text)
	assert.Equal(t, "rest", doc[1].Data)
}

func TestParse_CaseFolding(t *testing.T) {
	doc := Parse("<RESULT>5</RESULT>")
	require.Len(t, doc, 1)
	assert.Equal(t, "result", doc[0].Data)
	assert.Equal(t, "5", doc[0].Text)
}

func TestParse_ClosingTagWhitespace(t *testing.T) {
	doc := Parse("<result>5</result >")
	require.Len(t, doc, 1)
	assert.Equal(t, "5", doc[0].Text)
}

func TestParse_NeverFails(t *testing.T) {
	// Pathological inputs must still come back as some node list.
	for _, s := range []string{"", "<", "<<", "<>", "< gadget>", "<gadget id=>", "<gadget id='unterminated", "a<b"} {
		assert.NotPanics(t, func() { Parse(s) }, "input %q", s)
	}
}

func TestRender_Inverse(t *testing.T) {
	in := "before\n<gadget id=\"calc\">2+2</gadget>\n<output>4</output>\n<result>4</result>"
	assert.Equal(t, in, Render(Parse(in)))
}

func TestIsWhitespace(t *testing.T) {
	assert.True(t, Node{Type: TextNode, Data: " \n\t"}.IsWhitespace())
	assert.False(t, Node{Type: TextNode, Data: " x "}.IsWhitespace())
	assert.False(t, Node{Type: ElementNode, Data: "output"}.IsWhitespace())
}
