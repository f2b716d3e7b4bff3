package engine

import (
	"fmt"
	"strings"

	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
)

func tableFor(col memelang.Column) string {
	switch col {
	case memelang.ColAMT:
		return database.TableNumb
	case memelang.ColALP:
		return database.TableName
	}
	return database.TableNode
}

// Selectify compiles one Expression into one SELECT whose rows are
// Memelang text blobs grouped by (graph, body). Aliases n0..nk are
// wired by link tier: AND joins on the shared body, FWD traverses
// aid->aid into a different body, REV pops the traversal frame.
// Placeholders are '?'; the adapter rebinds them.
func Selectify(expr memelang.Expression, gid int64) (string, []any, error) {
	n := 0
	aa := []int{0}
	bb := []int{0}
	sel := fmt.Sprintf("';{%d:' || n0.bid", gid)
	join := ""
	where := fmt.Sprintf("n0.gid=%d", gid)
	groupby := "n0.bid"
	var params []any
	acol := memelang.ColAID
	aacol := memelang.ColNone

	for _, term := range expr {
		desc, ok := memelang.ByID(term.Op)
		if !ok {
			return "", nil, fmt.Errorf("%w: bad operator %d", memelang.ErrSyntax, term.Op)
		}

		if desc.Column == memelang.ColBID {
			if !term.RHS.IsNone() {
				where += " AND n0.bid=?"
				params = append(params, term.RHS.Int)
			}
			continue
		}

		acol = memelang.ColAID
		tbl := database.TableNode
		if desc.Column != memelang.ColNone {
			acol = desc.Column
			tbl = tableFor(acol)
		}

		switch desc.Tier {
		case memelang.TierEnd, memelang.TierImp:
			join += fmt.Sprintf(" FROM %s n%d", tbl, n)
			aacol = acol

		case memelang.TierAnd:
			n++
			bb = append(bb, n)
			join += fmt.Sprintf(" LEFT JOIN %s n%d ON n%d.bid=n%d.bid", tbl, n, aa[len(aa)-1], n)
			if acol == memelang.ColAID && aacol == memelang.ColAID {
				join += fmt.Sprintf(" AND (n%d.aid!=n%d.aid OR n%d.rid!=n%d.rid)",
					aa[len(aa)-1], n, aa[len(aa)-1], n)
			}

		case memelang.TierFwd:
			n++
			prev := bb[len(bb)-1]
			aa = append(aa, n)
			bb = append(bb, n)
			sel += fmt.Sprintf(", string_agg(DISTINCT ' ' || n%d.rid || '[' || n%d.rid, '')", prev, n)
			join += fmt.Sprintf(" JOIN %s n%d ON n%d.aid=n%d.aid AND n%d.gid=%d AND n%d.bid!=n%d.bid",
				tbl, n, prev, n, n, gid, prev, n)
			groupby += fmt.Sprintf(", n%d.aid, n%d.rid, n%d.bid", n, n, n)
			aacol = acol

		case memelang.TierRev:
			if len(aa) <= 1 {
				return "", nil, fmt.Errorf("%w: unmatched ]", memelang.ErrShape)
			}
			sel += ", '}'"
			aa = aa[:len(aa)-1]
			continue
		}

		if !term.LHS.IsNone() {
			where += fmt.Sprintf(" AND n%d.rid=?", n)
			params = append(params, bindValue(term.LHS))
		}

		switch acol {
		case memelang.ColAID:
			sel += fmt.Sprintf(", string_agg(DISTINCT ' ' || n%d.rid || '=a' || n%d.aid, '')", n, n)
			if !term.RHS.IsNone() {
				where += fmt.Sprintf(" AND n%d.aid=?", n)
				params = append(params, bindValue(term.RHS))
			}

		case memelang.ColALP:
			sel += fmt.Sprintf(", string_agg(DISTINCT ' ' || n%d.rid || '=\"' || n%d.alp || '\"', '')", n, n)
			if !term.RHS.IsNone() {
				where += fmt.Sprintf(" AND LOWER(n%d.alp) LIKE ?", n)
				params = append(params, strings.ToLower(term.RHS.Str))
			}

		case memelang.ColAMT:
			sel += fmt.Sprintf(", string_agg(DISTINCT ' ' || n%d.rid || '==' || n%d.amt, '')", n, n)
			if !term.RHS.IsNone() {
				where += fmt.Sprintf(" AND n%d.amt%s?", n, desc.Cmp)
				params = append(params, bindValue(term.RHS))
			}
		}
	}

	sql := fmt.Sprintf("SELECT CONCAT(%s) AS raq%s WHERE %s GROUP BY %s", sel, join, where, groupby)
	return sql, params, nil
}

// Sqlify compiles every Expression and UNIONs the selects.
func Sqlify(toks memelang.Tokens, gid int64) (string, []any, error) {
	var selects []string
	var params []any
	for _, expr := range toks {
		sql, exprParams, err := Selectify(expr, gid)
		if err != nil {
			return "", nil, err
		}
		selects = append(selects, sql)
		params = append(params, exprParams...)
	}
	return strings.Join(selects, " UNION "), params, nil
}

func bindValue(v memelang.Value) any {
	switch v.Kind {
	case memelang.KindInt:
		return v.Int
	case memelang.KindFloat:
		return v.Num
	}
	return v.Str
}
