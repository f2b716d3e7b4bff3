package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
)

var rePreambleField = regexp.MustCompile(`^([a-z]+)=(\S+)$`)

// job is the parsed leading key=value preamble of a query.
type job struct {
	action string
	gid    int64
	src    string
}

// splitPreamble reads an optional first line of whitespace-separated
// key=value pairs recognising j (action) and g (graph id). A line with
// any other shape is part of the query itself.
func splitPreamble(src string, gid int64) job {
	j := job{action: "get", gid: gid, src: src}

	line, rest, _ := strings.Cut(strings.TrimLeft(src, " \t\n"), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return j
	}
	parsed := job{action: j.action, gid: j.gid, src: rest}
	for _, field := range fields {
		m := rePreambleField.FindStringSubmatch(field)
		if m == nil {
			return j
		}
		switch m[1] {
		case "j":
			parsed.action = m[2]
		case "g":
			g, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				return j
			}
			parsed.gid = g
		default:
			return j
		}
	}
	return parsed
}

// Query routes one request: parse the preamble, then get, put, count,
// or delete. The reply is always a single Memelang string.
func (e *Engine) Query(ctx context.Context, src string) (string, error) {
	j := splitPreamble(src, e.gid)

	switch j.action {
	case "get":
		toks, err := memelang.Decode(j.src)
		if err != nil {
			return "", err
		}
		if err := e.Identify(ctx, toks, j.gid); err != nil {
			return "", err
		}
		return e.Get(ctx, toks, j.gid)

	case "put":
		return e.Put(ctx, j.src, j.gid)

	case "cnt":
		toks, err := memelang.Decode(j.src)
		if err != nil {
			return "", err
		}
		if err := e.Identify(ctx, toks, j.gid); err != nil {
			return "", err
		}
		n, err := e.Count(ctx, toks, j.gid)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("amt=%d", n), nil

	case "delg", "dela", "delr", "delb", "delarb":
		n, err := e.Delete(ctx, j.action, j.src, j.gid)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("amt=%d", n), nil
	}

	return "", fmt.Errorf("%w: %q", memelang.ErrInvalidJob, j.action)
}

// Get executes the compiled union select and re-encodes the matched
// triples as Memelang text.
func (e *Engine) Get(ctx context.Context, toks memelang.Tokens, gid int64) (string, error) {
	query, params, err := Sqlify(toks, gid)
	if err != nil {
		return "", err
	}
	e.logger.SQL(gid, database.Morfigy(query, params))

	rows, err := e.db.DB().QueryContext(ctx, e.db.Rebind(query), params...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var buf strings.Builder
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return "", err
		}
		buf.WriteString(blob)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if buf.Len() == 0 {
		return "", nil
	}

	result, err := memelang.Decode(buf.String())
	if err != nil {
		return "", err
	}
	if err := e.Keyify(ctx, result, gid); err != nil {
		return "", err
	}
	return memelang.Encode(result), nil
}

// Count returns the number of matched result rows without shipping
// the aggregated blobs.
func (e *Engine) Count(ctx context.Context, toks memelang.Tokens, gid int64) (int64, error) {
	query, params, err := Sqlify(toks, gid)
	if err != nil {
		return 0, err
	}
	query = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS q", query)

	var n int64
	err = e.db.DB().QueryRowContext(ctx, e.db.Rebind(query), params...).Scan(&n)
	return n, err
}

// delRule says which of rel/aid/bid a delete variant requires. Fields
// absent from the rule must be absent from the query.
type delRule struct {
	rel, aid, bid bool
}

var delRules = map[string]delRule{
	"delg":   {},
	"dela":   {aid: true},
	"delr":   {rel: true},
	"delb":   {bid: true},
	"delarb": {rel: true, aid: true, bid: true},
}

// Delete validates the variant against the query terms and issues one
// parameterised DELETE per backing table. Returns rows removed.
func (e *Engine) Delete(ctx context.Context, action string, src string, gid int64) (int64, error) {
	rule := delRules[action]

	var rel, aid, bid memelang.Value
	if strings.TrimSpace(src) != "" {
		toks, err := memelang.Decode(src)
		if err != nil {
			return 0, err
		}
		if err := e.Identify(ctx, toks, gid); err != nil {
			return 0, err
		}
		if len(toks) > 0 {
			for _, term := range toks[0] {
				desc, _ := memelang.ByID(term.Op)
				if desc.Column == memelang.ColBID {
					bid = term.RHS
					continue
				}
				if rel.IsNone() {
					rel = term.LHS
				}
				if aid.IsNone() && resolvableRHS(desc) {
					aid = term.RHS
				}
			}
		}
	}

	for _, check := range []struct {
		want bool
		have bool
		name string
	}{
		{rule.rel, !rel.IsNone(), "rel"},
		{rule.aid, !aid.IsNone(), "aid"},
		{rule.bid, !bid.IsNone(), "bid"},
	} {
		if check.want && !check.have {
			return 0, fmt.Errorf("%w: %s requires %s", memelang.ErrShape, action, check.name)
		}
		if !check.want && check.have {
			return 0, fmt.Errorf("%w: %s admits no %s", memelang.ErrShape, action, check.name)
		}
	}

	tables := []string{database.TableNode, database.TableNumb, database.TableName}
	if action == "dela" {
		tables = []string{database.TableNode}
	}

	tx, err := e.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, tbl := range tables {
		where := "gid=?"
		params := []any{gid}
		if rule.bid {
			where += " AND bid=?"
			params = append(params, bid.Int)
		}
		if rule.rel {
			where += " AND rid=?"
			params = append(params, rel.Int)
		}
		if rule.aid && tbl == database.TableNode {
			where += " AND aid=?"
			params = append(params, aid.Int)
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", tbl, where)
		e.logger.SQL(gid, database.Morfigy(query, params))
		res, err := tx.ExecContext(ctx, e.db.Rebind(query), params...)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
