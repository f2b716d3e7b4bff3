package memelang

import (
	"strconv"
	"strings"
)

// Encode serializes Tokens back into canonical Memelang source. The
// output parses back to an AST with the same observable triples.
func Encode(toks Tokens) string {
	var b strings.Builder
	for _, expr := range toks {
		for _, term := range expr {
			desc, ok := ByID(term.Op)
			if !ok {
				continue
			}
			b.WriteString(desc.Prefix)
			writeLHS(&b, term.LHS)
			if term.Op.Cmp() != cmpNone || desc.Column == ColBID {
				b.WriteString(desc.Infix)
				writeRHS(&b, desc, term.RHS)
				b.WriteString(desc.Suffix)
			}
		}
	}
	return strings.TrimLeft(b.String(), "\n")
}

func writeLHS(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindStr:
		b.WriteString(v.Str)
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
	}
}

func writeRHS(b *strings.Builder, desc OpDesc, v Value) {
	switch v.Kind {
	case KindInt:
		// an unresolved id prints in its literal form so the
		// output decodes without a key dictionary
		if desc.Column == ColAID || desc.Column == ColNone {
			b.WriteString("a")
		}
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
	case KindStr:
		if desc.Column == ColALP {
			b.WriteString(strings.ReplaceAll(v.Str, `"`, `\"`))
		} else {
			b.WriteString(v.Str)
		}
	}
}
