package memelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRelationAndKey(t *testing.T) {
	toks, err := Decode("child parent=JohnAdams")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Len(t, toks[0], 2)

	assert.Equal(t, Term{Op: Compose(LinkEnd, 0), LHS: StrValue("child")}, toks[0][0])
	assert.Equal(t, Term{
		Op:  Compose(LinkAnd, CmpID),
		LHS: StrValue("parent"),
		RHS: StrValue("JohnAdams"),
	}, toks[0][1])
}

func TestDecodePromotion(t *testing.T) {
	tests := []struct {
		name string
		src  string
		cmp  uint16
		rhs  Value
	}{
		{
			name: "decimal promotes = to ==",
			src:  "year=1732.0",
			cmp:  CmpEq,
			rhs:  FloatValue(1732.0),
		},
		{
			name: "integer promotes = to ==",
			src:  "year=1732",
			cmp:  CmpEq,
			rhs:  FloatValue(1732.0),
		},
		{
			name: "negative promotes = to ==",
			src:  "delta=-5",
			cmp:  CmpEq,
			rhs:  FloatValue(-5.0),
		},
		{
			name: "explicit ==",
			src:  "year==1732",
			cmp:  CmpEq,
			rhs:  FloatValue(1732.0),
		},
		{
			name: "id literal stays an id",
			src:  "parent=a1234",
			cmp:  CmpID,
			rhs:  IntValue(1234),
		},
		{
			name: "key stays a key",
			src:  "parent=JohnAdams",
			cmp:  CmpID,
			rhs:  StrValue("JohnAdams"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Decode(tt.src)
			require.NoError(t, err)
			require.Len(t, toks, 1)
			require.Len(t, toks[0], 1)
			assert.Equal(t, tt.cmp, toks[0][0].Op.Cmp())
			assert.Equal(t, tt.rhs, toks[0][0].RHS)
		})
	}
}

func TestDecodeComparisons(t *testing.T) {
	tests := []struct {
		src string
		cmp uint16
	}{
		{"year>1700", CmpGt},
		{"year<1700", CmpLt},
		{"year>=1700", CmpGe},
		{"year<=1700", CmpLe},
		{"year!=1700", CmpNe},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := Decode(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.cmp, toks[0][0].Op.Cmp())
			assert.Equal(t, FloatValue(1700), toks[0][0].RHS)
		})
	}
}

func TestDecodeQuotedString(t *testing.T) {
	toks, err := Decode(`="John \"Q\" Adams"`)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Len(t, toks[0], 1)

	term := toks[0][0]
	assert.Equal(t, CmpStr, term.Op.Cmp())
	assert.Equal(t, StrValue(`John "Q" Adams`), term.RHS)

	assert.Equal(t, `="John \"Q\" Adams"`, Encode(toks))
}

func TestDecodeQuotedDigitsStayText(t *testing.T) {
	toks, err := Decode(`nam="1776"`)
	require.NoError(t, err)
	assert.Equal(t, StrValue("1776"), toks[0][0].RHS)
}

func TestDecodeStatements(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		exprs int
	}{
		{"semicolon splits", "year>1700;year<1800", 2},
		{"newline splits", "year>1700\nyear<1800", 2},
		{"newline runs collapse", "year>1700\n\n\nyear<1800", 2},
		{"imply splits", "child=a5>>parent=a6", 2},
		{"space extends", "child parent year>1700", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Decode(tt.src)
			require.NoError(t, err)
			assert.Len(t, toks, tt.exprs)
		})
	}
}

func TestDecodeForwardReverse(t *testing.T) {
	toks, err := Decode("child[birthee year>=1700")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Len(t, toks[0], 3)

	assert.Equal(t, TierEnd, tierOf(t, toks[0][0]))
	assert.Equal(t, TierFwd, tierOf(t, toks[0][1]))
	assert.Equal(t, TierAnd, tierOf(t, toks[0][2]))
	assert.Equal(t, FloatValue(1700), toks[0][2].RHS)

	toks, err = Decode("child[birthee]parent")
	require.NoError(t, err)
	require.Len(t, toks[0], 3)
	assert.Equal(t, TierRev, tierOf(t, toks[0][2]))
	assert.Equal(t, StrValue("parent"), toks[0][2].LHS)
}

func tierOf(t *testing.T, term Term) Tier {
	t.Helper()
	desc, ok := ByID(term.Op)
	require.True(t, ok)
	return desc.Tier
}

func TestDecodeBodyMarker(t *testing.T) {
	toks, err := Decode("{999:123 child=a456}")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Len(t, toks[0], 2)

	body := toks[0][0]
	desc, _ := ByID(body.Op)
	assert.Equal(t, ColBID, desc.Column)
	assert.Equal(t, IntValue(999), body.LHS)
	assert.Equal(t, IntValue(123), body.RHS)

	assert.Equal(t, IntValue(456), toks[0][1].RHS)
}

func TestDecodeComments(t *testing.T) {
	toks, err := Decode("year>1700 // only the moderns\nyear<1800")
	require.NoError(t, err)
	assert.Len(t, toks, 2)
}

func TestDecodeBackslashContinuation(t *testing.T) {
	toks, err := Decode("child \\\n parent")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Len(t, toks[0], 2)
}

func TestDecodeCaseKept(t *testing.T) {
	toks, err := Decode("parent=JOHNadams")
	require.NoError(t, err)
	assert.Equal(t, StrValue("JOHNadams"), toks[0][0].RHS)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"comment only", "// nothing here"},
		{"dangling bang", "year!1700"},
		{"bad character", "year=17&00"},
		{"bad number", "year=1.2.3"},
		{"bad body marker", "{abc:def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.src)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestNormalizeBodyTermFirst(t *testing.T) {
	toks := Tokens{{
		Term{Op: Compose(LinkEnd, 0), LHS: StrValue("child")},
		Term{Op: Compose(LinkBody, 0), LHS: IntValue(999), RHS: IntValue(123)},
	}}
	assert.ErrorIs(t, Normalize(toks), ErrShape)
}

func TestNormalizeIdempotent(t *testing.T) {
	toks, err := Decode("child parent=JohnAdams year=1732.0")
	require.NoError(t, err)

	before := Encode(toks)
	require.NoError(t, Normalize(toks))
	require.NoError(t, Normalize(toks))
	assert.Equal(t, before, Encode(toks))
}
