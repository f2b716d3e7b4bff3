package memelang

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the Value variant.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindStr
)

// Value is the tagged variant carried on either side of a Term:
// nothing, an id (int), an amount (float), or a key/string.
type Value struct {
	Kind Kind
	Int  int64
	Num  float64
	Str  string
}

func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Num: f} }
func StrValue(s string) Value    { return Value{Kind: KindStr, Str: s} }

func (v Value) IsNone() bool { return v.Kind == KindNone }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindStr:
		return v.Str
	}
	return ""
}

// Term is one (operator, lhs, rhs) triple of the AST.
type Term struct {
	Op  OpID
	LHS Value
	RHS Value
}

// Expression is an ordered sequence of Terms; the first Term introduces
// the root row and later Terms extend it via their link tier.
type Expression []Term

// Tokens is an ordered sequence of Expressions, one per statement.
type Tokens []Expression

// Normalize enforces per-term invariants after parsing and after every
// AST mutation. It coerces integer-looking strings to integers, forces
// amt-targeted rhs values to floats, and checks operator validity and
// body-term position. Idempotent.
func Normalize(toks Tokens) error {
	for s, expr := range toks {
		for e := range expr {
			term := &expr[e]
			desc, ok := ByID(term.Op)
			if !ok {
				return fmt.Errorf("%w: bad operator %d at %d:%d", ErrSyntax, term.Op, s, e)
			}

			term.LHS = cleanValue(term.LHS)
			if desc.Column != ColALP {
				// quoted literals keep their text, digits included
				term.RHS = cleanValue(term.RHS)
			}

			// a numeric rhs always rides '==', never '='
			if term.Op.Cmp() == CmpID && term.RHS.Kind == KindFloat {
				term.Op = Compose(term.Op.Link(), CmpEq)
				desc, _ = ByID(term.Op)
			}

			if desc.Column == ColAMT {
				switch term.RHS.Kind {
				case KindInt:
					term.RHS = FloatValue(float64(term.RHS.Int))
				case KindStr:
					f, err := strconv.ParseFloat(term.RHS.Str, 64)
					if err != nil {
						return fmt.Errorf("%w: non-numeric amount %q at %d:%d", ErrSyntax, term.RHS.Str, s, e)
					}
					term.RHS = FloatValue(f)
				}
			}

			if desc.Column == ColBID && e > 0 {
				return fmt.Errorf("%w: body term not first at %d:%d", ErrShape, s, e)
			}
		}
	}
	return nil
}

func cleanValue(v Value) Value {
	if v.Kind != KindStr {
		return v
	}
	s := strings.TrimSpace(v.Str)
	if s != "" && isDigits(s) {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return IntValue(i)
		}
	}
	v.Str = s
	return v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
