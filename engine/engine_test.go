package engine

import (
	"context"
	"database/sql"
	"testing"

	"github.com/memelang-net/memego/memelang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDatabase satisfies database.Database without a live store; it
// only serves the id sequence.
type stubDatabase struct {
	next int64
}

func (s *stubDatabase) DB() *sql.DB                        { return nil }
func (s *stubDatabase) Close() error                       { return nil }
func (s *stubDatabase) Rebind(q string) string             { return q }
func (s *stubDatabase) CreateDatabase() error              { return nil }
func (s *stubDatabase) CreateTables(context.Context) error { return nil }
func (s *stubDatabase) DropTables(context.Context) error   { return nil }

func (s *stubDatabase) NextID(context.Context) (int64, error) {
	s.next++
	return memelang.IDCor + s.next, nil
}

func TestSymbolCacheBothDirections(t *testing.T) {
	c := NewSymbolCache()
	c.Put(999, "JohnAdams", 536870916)

	id, ok := c.Get(999, "johnadams")
	require.True(t, ok)
	assert.Equal(t, int64(536870916), id)

	// the reverse binding keeps the original case
	key, ok := c.GetKey(999, 536870916)
	require.True(t, ok)
	assert.Equal(t, "JohnAdams", key)
}

func TestSymbolCacheGraphsAreSeparate(t *testing.T) {
	c := NewSymbolCache()
	c.Put(1, "x", 536870921)

	_, ok := c.Get(2, "x")
	assert.False(t, ok)
}

func TestSymbolCacheReserved(t *testing.T) {
	c := NewSymbolCache()

	id, ok := c.Get(999, "key")
	require.True(t, ok)
	assert.Equal(t, memelang.RelKey, id)

	key, ok := c.GetKey(42, memelang.RelNam)
	require.True(t, ok)
	assert.Equal(t, "nam", key)
}

func TestIdentifyFromCache(t *testing.T) {
	e := primedEngine()
	toks := identified(t, e, "child parent=JohnAdams")

	assert.Equal(t, memelang.IntValue(536870913), toks[0][0].LHS)
	assert.Equal(t, memelang.IntValue(536870916), toks[0][1].RHS)
}

func TestIdentifySkipsLiteralsAndAmounts(t *testing.T) {
	e := primedEngine()
	toks := identified(t, e, `year=1732.0 nam="JohnAdams"`)

	// the quoted literal must stay text even though it matches a key
	assert.Equal(t, memelang.StrValue("JohnAdams"), toks[0][1].RHS)
	assert.Equal(t, memelang.FloatValue(1732), toks[0][0].RHS)
}

func TestKeyifyRestoresKeys(t *testing.T) {
	e := primedEngine()
	toks := identified(t, e, "child parent=JohnAdams")

	require.NoError(t, e.Keyify(context.Background(), toks, memelang.DefaultGraph))
	assert.Equal(t, memelang.StrValue("child"), toks[0][0].LHS)
	assert.Equal(t, memelang.StrValue("JohnAdams"), toks[0][1].RHS)
}

func TestKeyifySkipsBodyMarkers(t *testing.T) {
	e := primedEngine()
	e.Cache().Put(memelang.DefaultGraph, "washington", 536870918)
	toks := identified(t, e, "{999:123 child=a536870918")

	require.NoError(t, e.Keyify(context.Background(), toks, memelang.DefaultGraph))
	assert.Equal(t, memelang.IntValue(999), toks[0][0].LHS)
	assert.Equal(t, memelang.IntValue(123), toks[0][0].RHS)
	assert.Equal(t, memelang.StrValue("washington"), toks[0][1].RHS)
}
