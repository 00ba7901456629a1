package gadget

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CalculatorID is the stable identifier of the built-in calculator.
const CalculatorID = "calculator"

// Calculator evaluates arithmetic expressions. It supports +, -, *, /, ^,
// parentheses, unary minus and numbers with thousands separators. Per the
// gadget contract it never returns an error: malformed input comes back as
// an "ERROR: ..." description so the protocol stream stays well-formed.
type Calculator struct{}

// NewCalculator creates the built-in calculator gadget.
func NewCalculator() *Calculator { return &Calculator{} }

// ID implements the Gadget interface.
func (*Calculator) ID() string { return CalculatorID }

// Call implements the Gadget interface.
func (*Calculator) Call(input string) string {
	p := &exprParser{src: input}
	v, err := p.parse()
	if err != nil {
		return fmt.Sprintf("ERROR: %s", err)
	}
	return FormatNumber(v)
}

// FormatNumber renders a calculator value the way the protocol expects:
// integral values without a decimal point, everything else with up to six
// significant fractional digits.
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprintf("ERROR: result is %v", v)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// exprParser is a small recursive-descent evaluator over the raw input.
type exprParser struct {
	src string
	pos int
}

func (p *exprParser) parse() (float64, error) {
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return 0, fmt.Errorf("unexpected '%c' at position %d", p.src[p.pos], p.pos)
	}
	return v, nil
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			w, err := p.term()
			if err != nil {
				return 0, err
			}
			v += w
		case '-':
			p.pos++
			w, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= w
		default:
			return v, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.power()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			w, err := p.power()
			if err != nil {
				return 0, err
			}
			v *= w
		case '/':
			p.pos++
			w, err := p.power()
			if err != nil {
				return 0, err
			}
			if w == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= w
		default:
			return v, nil
		}
	}
}

func (p *exprParser) power() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.peek() == '^' {
		p.pos++
		// Right associative.
		w, err := p.power()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, w), nil
	}
	return v, nil
}

func (p *exprParser) unary() (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.unary()
		return -v, err
	}
	return p.primary()
}

func (p *exprParser) primary() (float64, error) {
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	return p.number()
}

func (p *exprParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if p.pos >= len(p.src) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected '%c' at position %d", p.src[p.pos], p.pos)
	}
	// Thousands separators are formatting noise.
	text := strings.ReplaceAll(p.src[start:p.pos], ",", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.src[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}
