package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
)

var (
	reKeyOK  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	reLetter = regexp.MustCompile(`[a-zA-Z]`)
)

// rowBatch accumulates (gid, bid, rid, value) rows for one table.
type rowBatch struct {
	table  string
	params []any
	rows   int
}

func (b *rowBatch) add(gid, bid int64, rid any, val any) {
	b.params = append(b.params, gid, bid, rid, val)
	b.rows++
}

func (b *rowBatch) sql() string {
	values := strings.TrimSuffix(strings.Repeat("(?,?,?,?),", b.rows), ",")
	return fmt.Sprintf("INSERT INTO %s VALUES %s ON CONFLICT DO NOTHING", b.table, values)
}

// Put parses source, allocates ids for unseen keys, partitions terms
// into per-table row batches sharing one body id per expression, and
// writes everything in a single transaction. Re-running the same
// source leaves the stored state unchanged when every expression pins
// or names its body; an expression with neither draws a fresh body id
// on each run and so stores new rows each time.
func (e *Engine) Put(ctx context.Context, src string, gid int64) (string, error) {
	if gid == 0 {
		return "", fmt.Errorf("%w: put requires a graph id", memelang.ErrInvalidID)
	}

	toks, err := memelang.Decode(src)
	if err != nil {
		return "", err
	}

	keyRows, err := e.allocateKeys(ctx, toks, gid)
	if err != nil {
		return "", err
	}
	if err := e.Identify(ctx, toks, gid); err != nil {
		return "", err
	}

	batches, err := e.buildBatches(ctx, toks, gid)
	if err != nil {
		return "", err
	}

	tx, err := e.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	// key rows first: the triple rows depend on their ids
	for _, batch := range append([]*rowBatch{keyRows}, batches...) {
		if batch.rows == 0 {
			continue
		}
		sql := e.db.Rebind(batch.sql())
		e.logger.SQL(gid, database.Morfigy(batch.sql(), batch.params))
		if _, err := tx.ExecContext(ctx, sql, batch.params...); err != nil {
			tx.Rollback()
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	if err := e.Keyify(ctx, toks, gid); err != nil {
		return "", err
	}
	return memelang.Encode(toks), nil
}

// allocateKeys collects unresolved key strings, sweeps the keys
// relation for existing bindings, and allocates fresh ids above COR
// for the rest. Returns the pending key rows for the name table.
func (e *Engine) allocateKeys(ctx context.Context, toks memelang.Tokens, gid int64) (*rowBatch, error) {
	newkeys := make(map[string]int64)
	display := make(map[string]string)

	collect := func(v memelang.Value) error {
		if v.Kind != memelang.KindStr {
			return nil
		}
		if _, ok := e.cache.Get(gid, v.Str); ok {
			return nil
		}
		if !reKeyOK.MatchString(v.Str) || !reLetter.MatchString(v.Str) {
			return fmt.Errorf("%w: invalid key %q", memelang.ErrSyntax, v.Str)
		}
		lower := strings.ToLower(v.Str)
		if _, seen := newkeys[lower]; !seen {
			newkeys[lower] = 0
			display[lower] = v.Str
		}
		return nil
	}

	for _, expr := range toks {
		for _, term := range expr {
			desc, _ := memelang.ByID(term.Op)
			if err := collect(term.LHS); err != nil {
				return nil, err
			}
			if resolvableRHS(desc) {
				if err := collect(term.RHS); err != nil {
					return nil, err
				}
			}
			if term.Op.Cmp() != 0 && desc.Column != memelang.ColBID && term.RHS.IsNone() {
				return nil, fmt.Errorf("%w: missing value in %v", memelang.ErrShape, term)
			}
		}
	}

	batch := &rowBatch{table: database.TableName}
	if len(newkeys) == 0 {
		return batch, nil
	}

	lowers := make([]string, 0, len(newkeys))
	for k := range newkeys {
		lowers = append(lowers, k)
	}
	found, err := e.loadKeys(ctx, gid, lowers)
	if err != nil {
		return nil, err
	}
	for lower, id := range found {
		proposed, ok := newkeys[lower]
		if !ok {
			continue
		}
		if proposed != 0 && proposed != id {
			return nil, fmt.Errorf("%w: %q is id %d, not %d", memelang.ErrDuplicateKey, display[lower], id, proposed)
		}
		delete(newkeys, lower)
	}

	for lower, proposed := range newkeys {
		id := proposed
		if id == 0 {
			if id, err = e.db.NextID(ctx); err != nil {
				return nil, err
			}
		} else if id <= memelang.IDCor {
			return nil, fmt.Errorf("%w: %d is below the reserved ceiling", memelang.ErrInvalidID, id)
		}
		e.cache.Put(gid, display[lower], id)
		batch.add(gid, id, memelang.RelKey, display[lower])
	}
	return batch, nil
}

// buildBatches assigns each expression its body id and partitions the
// terms into node/numb/name rows. A leading term with no comparison
// side names the body; an explicit {g:b term pins it; otherwise a
// fresh id is drawn.
func (e *Engine) buildBatches(ctx context.Context, toks memelang.Tokens, gid int64) ([]*rowBatch, error) {
	node := &rowBatch{table: database.TableNode}
	numb := &rowBatch{table: database.TableNumb}
	name := &rowBatch{table: database.TableName}

	for _, expr := range toks {
		bid, err := e.bodyID(ctx, expr)
		if err != nil {
			return nil, err
		}

		for _, term := range expr {
			desc, _ := memelang.ByID(term.Op)
			if desc.Column != memelang.ColBID && desc.Column != memelang.ColNone &&
				term.LHS.Kind != memelang.KindInt {
				return nil, fmt.Errorf("%w: triple without a relation in %v", memelang.ErrShape, term)
			}
			switch desc.Column {
			case memelang.ColBID, memelang.ColNone:
				// names the body; no triple of its own
			case memelang.ColAID:
				node.add(gid, bid, term.LHS.Int, term.RHS.Int)
			case memelang.ColAMT:
				numb.add(gid, bid, term.LHS.Int, term.RHS.Num)
			case memelang.ColALP:
				name.add(gid, bid, term.LHS.Int, term.RHS.Str)
			default:
				return nil, fmt.Errorf("%w: cannot store %v", memelang.ErrShape, term)
			}
		}
	}
	return []*rowBatch{node, numb, name}, nil
}

func (e *Engine) bodyID(ctx context.Context, expr memelang.Expression) (int64, error) {
	if len(expr) > 0 {
		first := expr[0]
		desc, _ := memelang.ByID(first.Op)
		if desc.Column == memelang.ColBID {
			return first.RHS.Int, nil
		}
		if first.Op.Cmp() == 0 && first.LHS.Kind == memelang.KindInt {
			return first.LHS.Int, nil
		}
	}
	return e.db.NextID(ctx)
}
