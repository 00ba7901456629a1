package model

import (
	"strings"
	"sync"
)

// WordTokenizer is a deterministic, lossless tokenizer over runs of
// whitespace and non-whitespace. It grows its vocabulary on demand, which
// makes it reproducible for tests, examples and API-backed models that have
// no native token space of their own. Id 0 is reserved for the
// end-of-sequence marker and is never produced by Encode.
type WordTokenizer struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

// NewWordTokenizer creates an empty WordTokenizer.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{
		ids:   map[string]int{},
		words: []string{""}, // id 0 = EOS
	}
}

// Encode implements the Tokenizer interface. The concatenation of the
// decoded tokens always reproduces the input text exactly.
func (t *WordTokenizer) Encode(text string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []int
	for _, tok := range splitRuns(text) {
		id, ok := t.ids[tok]
		if !ok {
			id = len(t.words)
			t.ids[tok] = id
			t.words = append(t.words, tok)
		}
		ids = append(ids, id)
	}
	return ids
}

// Decode implements the Tokenizer interface, skipping the EOS marker.
func (t *WordTokenizer) Decode(ids []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for _, id := range ids {
		if id <= 0 || id >= len(t.words) {
			continue
		}
		b.WriteString(t.words[id])
	}
	return b.String()
}

// EOSID implements the Tokenizer interface.
func (t *WordTokenizer) EOSID() int { return 0 }

// splitRuns cuts text into alternating runs of whitespace and
// non-whitespace so that encoding is reversible. Runs additionally break
// before '<' and after '>', so a markup tag like </gadget> always encodes
// to the same token sequence regardless of what text it abuts. Token-suffix
// stop conditions rely on that stability.
func splitRuns(text string) []string {
	var runs []string
	start := 0
	for i := 1; i < len(text); i++ {
		if isSpace(text[i]) != isSpace(text[i-1]) || text[i] == '<' || text[i-1] == '>' {
			runs = append(runs, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		runs = append(runs, text[start:])
	}
	return runs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
