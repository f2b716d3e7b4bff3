package memelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Decoding what Encode produced must yield the same tokens.
func TestRoundTrip(t *testing.T) {
	sources := []string{
		"child",
		"CHILD =",
		"child parent",
		"child parent=",
		"child= parent=",
		"=JohnAdams",
		"parent=JOHNadams",
		"child[birthee",
		"child[birthee =",
		"child[birthee year>",
		"year==1732",
		"year=1732.0",
		"year>1700",
		"year<=1800",
		"year>=1700",
		"child[birthee year>=1700",
		"child[birthee]parent",
		"year>1700;year<1800",
		"child=a456 parent=a789",
		"{999:123 child=a456",
		`nam="George Washington"`,
		`tit="say \"cheese\""`,
		"a=1>>b=2",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			toks, err := Decode(src)
			require.NoError(t, err)

			encoded := Encode(toks)
			again, err := Decode(encoded)
			require.NoError(t, err, "re-decoding %q", encoded)
			assert.Equal(t, toks, again)

			// and the canonical form is a fixed point
			assert.Equal(t, encoded, Encode(again))
		})
	}
}

func TestEncodeForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"promoted equals prints compactly", "year=1732.0", "year=1732"},
		{"id literal", "parent=a1234", "parent=a1234"},
		{"statement separator", "year>1700;year<1800", "year>1700\nyear<1800"},
		{"forward join", "child[birthee year>=1700", "child[birthee year>=1700"},
		{"body marker", "{999:123 child=a456", "{999:123 child=a456"},
		{"quoted value", `nam="George Washington"`, `nam="George Washington"`},
		{"fraction", "tall==1.8", "tall=1.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Decode(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Encode(toks))
		})
	}
}
