// Package engine compiles Memelang Tokens against a live relational
// store: key/id resolution, SELECT compilation, batched inserts, and
// the job dispatcher.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
)

// Engine owns one database handle and one symbol cache. Methods are
// safe for concurrent use; the cache serializes its own writers.
type Engine struct {
	db     database.Database
	logger database.Logger
	cache  *SymbolCache
	gid    int64
}

func New(db database.Database) *Engine {
	return &Engine{
		db:     db,
		logger: database.NullLogger{},
		cache:  NewSymbolCache(),
		gid:    memelang.DefaultGraph,
	}
}

func (e *Engine) SetLogger(logger database.Logger) { e.logger = logger }
func (e *Engine) SetGraph(gid int64)               { e.gid = gid }
func (e *Engine) Graph() int64                     { return e.gid }
func (e *Engine) Cache() *SymbolCache              { return e.cache }

// reserved keys, bound below the runtime id space in every graph
var reserved = map[string]int64{
	"nam": memelang.RelNam,
	"key": memelang.RelKey,
	"tit": memelang.RelTit,
	"cor": memelang.IDCor,
}

// SymbolCache maps keys to ids and back, per graph. Every forward
// entry has its reverse entry; entries live for the process lifetime.
type SymbolCache struct {
	mu  sync.Mutex
	fwd map[int64]map[string]int64
	rev map[int64]map[int64]string
}

func NewSymbolCache() *SymbolCache {
	return &SymbolCache{
		fwd: make(map[int64]map[string]int64),
		rev: make(map[int64]map[int64]string),
	}
}

// Get resolves a key (case-insensitively) to its id.
func (c *SymbolCache) Get(gid int64, key string) (int64, bool) {
	lower := strings.ToLower(key)
	if id, ok := reserved[lower]; ok {
		return id, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.fwd[gid][lower]
	return id, ok
}

// GetKey resolves an id back to its original-case key.
func (c *SymbolCache) GetKey(gid int64, id int64) (string, bool) {
	for key, rid := range reserved {
		if rid == id {
			return key, true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.rev[gid][id]
	return key, ok
}

// Put binds key and id in both directions.
func (c *SymbolCache) Put(gid int64, key string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fwd[gid] == nil {
		c.fwd[gid] = make(map[string]int64)
		c.rev[gid] = make(map[int64]string)
	}
	c.fwd[gid][strings.ToLower(key)] = id
	c.rev[gid][id] = key
}

// resolvableRHS reports whether a term's rhs holds an id/key rather
// than an amount or a string literal.
func resolvableRHS(desc memelang.OpDesc) bool {
	return desc.Column == memelang.ColAID || desc.Column == memelang.ColNone
}

// Identify rewrites key strings into ids in place: relation names on
// the lhs always, rhs values only where the operator targets aid. Keys
// absent from the cache are fetched with one batched select; keys
// absent from the graph fail with Unknown.
func (e *Engine) Identify(ctx context.Context, toks memelang.Tokens, gid int64) error {
	missing := make(map[string]bool)
	for _, expr := range toks {
		for _, term := range expr {
			desc, _ := memelang.ByID(term.Op)
			if term.LHS.Kind == memelang.KindStr {
				if _, ok := e.cache.Get(gid, term.LHS.Str); !ok {
					missing[strings.ToLower(term.LHS.Str)] = true
				}
			}
			if term.RHS.Kind == memelang.KindStr && resolvableRHS(desc) {
				if _, ok := e.cache.Get(gid, term.RHS.Str); !ok {
					missing[strings.ToLower(term.RHS.Str)] = true
				}
			}
		}
	}

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		if _, err := e.loadKeys(ctx, gid, keys); err != nil {
			return err
		}
	}

	for _, expr := range toks {
		for t := range expr {
			term := &expr[t]
			desc, _ := memelang.ByID(term.Op)
			if term.LHS.Kind == memelang.KindStr {
				id, ok := e.cache.Get(gid, term.LHS.Str)
				if !ok {
					return fmt.Errorf("%w: %q in graph %d", memelang.ErrUnknown, term.LHS.Str, gid)
				}
				term.LHS = memelang.IntValue(id)
			}
			if term.RHS.Kind == memelang.KindStr && resolvableRHS(desc) {
				id, ok := e.cache.Get(gid, term.RHS.Str)
				if !ok {
					return fmt.Errorf("%w: %q in graph %d", memelang.ErrUnknown, term.RHS.Str, gid)
				}
				term.RHS = memelang.IntValue(id)
			}
		}
	}
	return nil
}

// Keyify is the dual of Identify: ids become keys where a binding
// exists, and stay numeric otherwise.
func (e *Engine) Keyify(ctx context.Context, toks memelang.Tokens, gid int64) error {
	missing := make(map[int64]bool)
	for _, expr := range toks {
		for _, term := range expr {
			desc, _ := memelang.ByID(term.Op)
			if desc.Column == memelang.ColBID {
				continue
			}
			if term.LHS.Kind == memelang.KindInt {
				if _, ok := e.cache.GetKey(gid, term.LHS.Int); !ok {
					missing[term.LHS.Int] = true
				}
			}
			if term.RHS.Kind == memelang.KindInt && resolvableRHS(desc) {
				if _, ok := e.cache.GetKey(gid, term.RHS.Int); !ok {
					missing[term.RHS.Int] = true
				}
			}
		}
	}

	if len(missing) > 0 {
		ids := make([]int64, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		if err := e.loadIds(ctx, gid, ids); err != nil {
			return err
		}
	}

	for _, expr := range toks {
		for t := range expr {
			term := &expr[t]
			desc, _ := memelang.ByID(term.Op)
			if desc.Column == memelang.ColBID {
				continue
			}
			if term.LHS.Kind == memelang.KindInt {
				if key, ok := e.cache.GetKey(gid, term.LHS.Int); ok {
					term.LHS = memelang.StrValue(key)
				}
			}
			if term.RHS.Kind == memelang.KindInt && resolvableRHS(desc) {
				if key, ok := e.cache.GetKey(gid, term.RHS.Int); ok {
					term.RHS = memelang.StrValue(key)
				}
			}
		}
	}
	return nil
}

// loadKeys runs the batched key lookup and merges results into the
// cache. Returns found keys as lower(alp) -> id.
func (e *Engine) loadKeys(ctx context.Context, gid int64, keys []string) (map[string]int64, error) {
	query := fmt.Sprintf(
		"SELECT bid, alp FROM %s WHERE gid = ? AND rid = ? AND LOWER(alp) IN (%s)",
		database.TableName, placeholders(len(keys)),
	)
	params := []any{gid, memelang.RelKey}
	for _, k := range keys {
		params = append(params, strings.ToLower(k))
	}

	rows, err := e.db.DB().QueryContext(ctx, e.db.Rebind(query), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]int64)
	for rows.Next() {
		var bid int64
		var alp string
		if err := rows.Scan(&bid, &alp); err != nil {
			return nil, err
		}
		e.cache.Put(gid, alp, bid)
		found[strings.ToLower(alp)] = bid
	}
	return found, rows.Err()
}

func (e *Engine) loadIds(ctx context.Context, gid int64, ids []int64) error {
	query := fmt.Sprintf(
		"SELECT bid, alp FROM %s WHERE gid = ? AND rid = ? AND bid IN (%s)",
		database.TableName, placeholders(len(ids)),
	)
	params := []any{gid, memelang.RelKey}
	for _, id := range ids {
		params = append(params, id)
	}

	rows, err := e.db.DB().QueryContext(ctx, e.db.Rebind(query), params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bid int64
		var alp string
		if err := rows.Scan(&bid, &alp); err != nil {
			return err
		}
		e.cache.Put(gid, alp, bid)
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
