package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mapkit-go/mapkit"
)

// Dataset is a sqlite-backed relation over one table. Refinements return a
// copy, so a Dataset registered in an environment is never modified by the
// callers refining it.
type Dataset struct {
	db     *sql.DB
	name   string
	table  string
	cols   []string // empty = all columns
	where  []string // combined with AND
	args   []any
	order  string
	limit  int // 0 = no limit
	offset int
}

// Name returns the symbolic relation name.
func (d *Dataset) Name() string { return d.name }

// Table returns the backing table name.
func (d *Dataset) Table() string { return d.table }

func (d *Dataset) clone() *Dataset {
	cp := *d
	cp.cols = append([]string(nil), d.cols...)
	cp.where = append([]string(nil), d.where...)
	cp.args = append([]any(nil), d.args...)
	return &cp
}

// Where appends a condition with placeholder args. Conditions combine with
// AND.
func (d *Dataset) Where(cond string, args ...any) *Dataset {
	cp := d.clone()
	cp.where = append(cp.where, cond)
	cp.args = append(cp.args, args...)
	return cp
}

// Select restricts the fetched columns.
func (d *Dataset) Select(cols ...string) *Dataset {
	cp := d.clone()
	cp.cols = append([]string(nil), cols...)
	return cp
}

// OrderBy sets the ORDER BY expression.
func (d *Dataset) OrderBy(expr string) *Dataset {
	cp := d.clone()
	cp.order = expr
	return cp
}

// Limit caps the number of fetched rows.
func (d *Dataset) Limit(n int) *Dataset {
	cp := d.clone()
	cp.limit = n
	return cp
}

// Offset skips the first n rows.
func (d *Dataset) Offset(n int) *Dataset {
	cp := d.clone()
	cp.offset = n
	return cp
}

// Tuples builds and executes the SELECT. Each call re-runs the query.
func (d *Dataset) Tuples(ctx context.Context) ([]mapkit.Tuple, error) {
	cols := "*"
	if len(d.cols) > 0 {
		cols = strings.Join(d.cols, ", ")
	}
	query := "SELECT " + cols + " FROM " + d.table
	if len(d.where) > 0 {
		query += " WHERE " + strings.Join(d.where, " AND ")
	}
	if d.order != "" {
		query += " ORDER BY " + d.order
	}
	if d.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", d.limit)
	} else if d.offset > 0 {
		query += " LIMIT -1" // sqlite needs LIMIT before OFFSET
	}
	if d.offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", d.offset)
	}

	rows, err := d.db.QueryContext(ctx, query, d.args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []mapkit.Tuple
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		t := make(mapkit.Tuple, len(names))
		for i, col := range names {
			t[col] = normalize(values[i])
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize converts driver []byte values to string so text columns have a
// stable Go type across queries.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
