// Package memelang implements the Memelang language core: the operator
// table, the lexer/parser (Decode), the serializer (Encode), and the
// normalizer. It performs no I/O; key/id resolution and SQL compilation
// live in the engine package.
package memelang

// Reserved ids. Keys allocated at runtime live strictly above IDCor.
const (
	RelNam int64 = 1<<9 + 0
	RelKey int64 = 1<<9 + 1
	RelTit int64 = 1<<9 + 2
	IDCor  int64 = 1 << 29

	DefaultGraph int64 = 999
)

// Column is the backing-store column a comparison operator targets.
type Column uint8

const (
	ColNone Column = iota
	ColRID
	ColBID
	ColAID
	ColAMT
	ColALP
)

// Tier is the join discipline a link operator imposes on adjacent terms.
// The order matters: the parser flushes terms at TierAnd and above, and
// flushes expressions at TierImp and above.
type Tier uint8

const (
	TierTerm Tier = iota
	TierAnd
	TierFwd
	TierRev
	TierImp
	TierEnd
)

// Link-side sub-operators.
const (
	linkNone uint16 = iota
	LinkAnd         // ' '
	LinkFwd         // '['
	LinkRev         // ']'
	LinkImp         // '>>'
	LinkEnd         // ';'
	LinkBody        // '{'
)

// Comparison-side sub-operators.
const (
	cmpNone uint16 = iota
	CmpID           // '='
	CmpStr          // '="'
	CmpEq           // '=='
	CmpGt           // '>'
	CmpLt           // '<'
	CmpGe           // '>='
	CmpLe           // '<='
	CmpNe           // '!='
)

// OpID is a composite operator id merging a link-side and a
// comparison-side sub-operator into a single value, keeping Terms flat.
type OpID uint16

// Compose merges a link sub-operator and a comparison sub-operator.
// Either side may be zero.
func Compose(link, cmp uint16) OpID {
	return OpID(link<<4 | cmp)
}

// Link and Cmp recover the two sides of a composite id.
func (op OpID) Link() uint16 { return uint16(op) >> 4 }
func (op OpID) Cmp() uint16  { return uint16(op) & 0xf }

// OpDesc describes one composite operator: its join tier, the column its
// comparison side targets, the SQL comparison glyph, and the fragments
// Encode prints around the term's values.
type OpDesc struct {
	ID     OpID
	Tier   Tier
	Column Column
	Cmp    string
	Prefix string
	Infix  string
	Suffix string
}

type linkDesc struct {
	tier   Tier
	prefix string
}

type cmpDesc struct {
	column Column
	cmp    string
	infix  string
	suffix string
}

var linkTable = map[uint16]linkDesc{
	LinkAnd:  {TierAnd, " "},
	LinkFwd:  {TierFwd, "["},
	LinkRev:  {TierRev, "]"},
	LinkImp:  {TierImp, ">>"},
	LinkEnd:  {TierEnd, "\n"},
	LinkBody: {TierAnd, "{"},
}

var cmpTable = map[uint16]cmpDesc{
	CmpID:  {ColAID, "=", "=", ""},
	CmpStr: {ColALP, "", "=\"", "\""},
	CmpEq:  {ColAMT, "=", "=", ""},
	CmpGt:  {ColAMT, ">", ">", ""},
	CmpLt:  {ColAMT, "<", "<", ""},
	CmpGe:  {ColAMT, ">=", ">=", ""},
	CmpLe:  {ColAMT, "<=", "<=", ""},
	CmpNe:  {ColAMT, "!=", "!=", ""},
}

// operators holds every legal composite. REV and BODY admit no
// comparison side; BODY's comparison column is the body id itself.
var operators = buildOperators()

func buildOperators() map[OpID]OpDesc {
	ops := make(map[OpID]OpDesc)
	for link, ld := range linkTable {
		bare := OpDesc{
			ID:     Compose(link, 0),
			Tier:   ld.tier,
			Column: ColNone,
			Prefix: ld.prefix,
		}
		if link == LinkBody {
			bare.Column = ColBID
			bare.Infix = ":"
		}
		ops[bare.ID] = bare
		if link == LinkRev || link == LinkBody {
			continue
		}
		for cmp, cd := range cmpTable {
			id := Compose(link, cmp)
			ops[id] = OpDesc{
				ID:     id,
				Tier:   ld.tier,
				Column: cd.column,
				Cmp:    cd.cmp,
				Prefix: ld.prefix,
				Infix:  cd.infix,
				Suffix: cd.suffix,
			}
		}
	}
	return ops
}

// ByID returns the descriptor for a composite operator id.
func ByID(op OpID) (OpDesc, bool) {
	desc, ok := operators[op]
	return desc, ok
}

// Lexeme classification for the tokenizer. A semicomplete lexeme may
// absorb the following raw token to form a longer operator; an
// incomplete lexeme must.
type completeness uint8

const (
	incomplete completeness = iota + 1
	semicomplete
	complete
)

type lexOp struct {
	state completeness
	link  uint16
	cmp   uint16
}

var lexemes = map[string]lexOp{
	"!":  {incomplete, 0, 0},
	">":  {semicomplete, 0, CmpGt},
	"<":  {semicomplete, 0, CmpLt},
	"=":  {semicomplete, 0, CmpID},
	"==": {complete, 0, CmpEq},
	"!=": {complete, 0, CmpNe},
	">=": {complete, 0, CmpGe},
	"<=": {complete, 0, CmpLe},
	";":  {complete, LinkEnd, 0},
	" ":  {complete, LinkAnd, 0},
	">>": {complete, LinkImp, 0},
	"[":  {complete, LinkFwd, 0},
	"]":  {complete, LinkRev, 0},
	"{":  {complete, LinkBody, 0},
}

// lookup classifies a raw lexeme as an operator, if it is one.
func lookup(lexeme string) (lexOp, bool) {
	op, ok := lexemes[lexeme]
	return op, ok
}
