package evaluation

import (
	"math"
	"strconv"
	"strings"
)

// relTolerance absorbs display rounding differences between otherwise equal
// values (e.g. "0.3333333" vs "1/3" printed with more digits).
const relTolerance = 1e-6

// AreNumericResultsSame compares a predicted final result against the true
// one. Both sides are stripped of common formatting noise (surrounding
// whitespace, thousands separators, percent and currency decorations,
// trailing punctuation) and parsed as numbers; they match when numerically
// equal within a small relative tolerance. If either side does not parse as
// a number the comparison fails, except when both sides are identical
// non-numeric text.
func AreNumericResultsSame(predicted, truth string) bool {
	p, pOK := ParseNumber(predicted)
	t, tOK := ParseNumber(truth)

	if pOK && tOK {
		return numbersClose(p, t)
	}
	if pOK != tOK {
		return false
	}

	pred := strings.TrimSpace(predicted)
	tru := strings.TrimSpace(truth)
	return pred != "" && pred == tru
}

// ParseNumber attempts to read a numeric value out of a formatted result
// string. It reports false when no number can be recovered.
func ParseNumber(s string) (float64, bool) {
	s = normalizeNumeric(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func numbersClose(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= relTolerance*scale
}

// normalizeNumeric strips the decorations results commonly carry in model
// output and labeled datasets.
func normalizeNumeric(s string) string {
	s = strings.TrimSpace(s)

	// Currency and percent decorations.
	for _, decoration := range []string{"$", "€", "£", "%"} {
		s = strings.TrimPrefix(s, decoration)
		s = strings.TrimSuffix(s, decoration)
	}
	s = strings.TrimSpace(s)

	// Trailing sentence punctuation ("42." or "42!").
	s = strings.TrimRight(s, ".,;:!?")

	// Thousands separators. Spaces and underscores inside a number are
	// treated the same way.
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")
	if strings.ContainsAny(s, " ") {
		// Only collapse inner spaces when everything between them is
		// numeric, so "1 234 567" parses but "no answer" does not.
		joined := strings.ReplaceAll(s, " ", "")
		if isNumericLiteral(joined) {
			s = joined
		}
	}

	return s
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return true
}
