package engine

import (
	"context"
	"testing"

	"github.com/memelang-net/memego/memelang"
	"github.com/stretchr/testify/assert"
)

func TestSplitPreamble(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		action string
		gid    int64
		rest   string
	}{
		{
			name:   "count with query",
			src:    "j=cnt\nyear>1700",
			action: "cnt",
			gid:    999,
			rest:   "year>1700",
		},
		{
			name:   "action and graph",
			src:    "j=put g=5\nx=1",
			action: "put",
			gid:    5,
			rest:   "x=1",
		},
		{
			name:   "no preamble",
			src:    "year>1700",
			action: "get",
			gid:    999,
			rest:   "year>1700",
		},
		{
			name:   "query line is not a preamble",
			src:    "child parent=JohnAdams",
			action: "get",
			gid:    999,
			rest:   "child parent=JohnAdams",
		},
		{
			name:   "bad graph id is not a preamble",
			src:    "g=abc\nyear>1700",
			action: "get",
			gid:    999,
			rest:   "g=abc\nyear>1700",
		},
		{
			name:   "unknown key is not a preamble",
			src:    "q=1\nyear>1700",
			action: "get",
			gid:    999,
			rest:   "q=1\nyear>1700",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := splitPreamble(tt.src, 999)
			assert.Equal(t, tt.action, j.action)
			assert.Equal(t, tt.gid, j.gid)
			assert.Equal(t, tt.rest, j.src)
		})
	}
}

func TestQueryInvalidJob(t *testing.T) {
	e := New(&stubDatabase{})
	_, err := e.Query(context.Background(), "j=frobnicate\nyear>1700")
	assert.ErrorIs(t, err, memelang.ErrInvalidJob)
}

func TestDeleteValidation(t *testing.T) {
	e := New(&stubDatabase{})
	ctx := context.Background()

	tests := []struct {
		name   string
		action string
		src    string
	}{
		{"dela requires aid", "dela", ""},
		{"delr requires rel", "delr", ""},
		{"delb requires bid", "delb", ""},
		{"delarb requires everything", "delarb", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Delete(ctx, tt.action, tt.src, 999)
			assert.ErrorIs(t, err, memelang.ErrShape)
		})
	}
}

func TestDeleteRejectsExtraFields(t *testing.T) {
	e := New(&stubDatabase{})
	e.Cache().Put(999, "child", 536871004)

	// delg wipes the whole graph and admits no relation
	_, err := e.Delete(context.Background(), "delg", "child", 999)
	assert.ErrorIs(t, err, memelang.ErrShape)
}
