package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mapkit-go/mapkit"
)

// InsertCommand inserts one tuple into table, generating a uuid primary key
// when the input omits it. The stored row is read back and returned so a
// bound mapper pipeline sees exactly what the table holds.
type InsertCommand struct {
	db    *sql.DB
	table string
	pk    string
}

func (c *InsertCommand) Call(ctx context.Context, input any) (any, error) {
	t, err := asTuple(input, c.table)
	if err != nil {
		return nil, err
	}
	row := make(mapkit.Tuple, len(t)+1)
	for k, v := range t {
		row[k] = v
	}
	if _, ok := row[c.pk]; !ok {
		row[c.pk] = uuid.NewString()
	}

	cols := sortedKeys(row)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		args = append(args, row[col])
	}
	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", c.table, strings.Join(cols, ", "), placeholders)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.table, err)
	}
	return readRow(ctx, c.db, c.table, c.pk, row[c.pk])
}

// UpdateCommand applies the input's columns to the row addressed by the
// input's primary key, then returns the updated row.
type UpdateCommand struct {
	db    *sql.DB
	table string
	pk    string
}

func (c *UpdateCommand) Call(ctx context.Context, input any) (any, error) {
	t, err := asTuple(input, c.table)
	if err != nil {
		return nil, err
	}
	id, ok := t[c.pk]
	if !ok {
		return nil, fmt.Errorf("update %s: input missing primary key %q", c.table, c.pk)
	}

	sets := make([]string, 0, len(t))
	args := make([]any, 0, len(t))
	for _, col := range sortedKeys(t) {
		if col == c.pk {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, t[col])
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("update %s: no columns to update", c.table)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", c.table, strings.Join(sets, ", "), c.pk)
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", c.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update %s: no row with %s = %v", c.table, c.pk, id)
	}
	return readRow(ctx, c.db, c.table, c.pk, id)
}

// DeleteCommand removes the row addressed by the input's primary key (the
// input may also be the bare key value) and returns the row as it was
// before deletion.
type DeleteCommand struct {
	db    *sql.DB
	table string
	pk    string
}

func (c *DeleteCommand) Call(ctx context.Context, input any) (any, error) {
	var id any
	switch v := input.(type) {
	case mapkit.Tuple:
		got, ok := v[c.pk]
		if !ok {
			return nil, fmt.Errorf("delete %s: input missing primary key %q", c.table, c.pk)
		}
		id = got
	case map[string]any:
		got, ok := v[c.pk]
		if !ok {
			return nil, fmt.Errorf("delete %s: input missing primary key %q", c.table, c.pk)
		}
		id = got
	default:
		id = input
	}

	row, err := readRow(ctx, c.db, c.table, c.pk, id)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.table, c.pk)
	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return nil, fmt.Errorf("delete %s: %w", c.table, err)
	}
	return row, nil
}

func asTuple(input any, table string) (mapkit.Tuple, error) {
	switch v := input.(type) {
	case mapkit.Tuple:
		return v, nil
	case map[string]any:
		return mapkit.Tuple(v), nil
	default:
		return nil, fmt.Errorf("command on %s: input must be a mapkit.Tuple, got %T", table, input)
	}
}

func sortedKeys(t mapkit.Tuple) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readRow(ctx context.Context, db *sql.DB, table, pk string, id any) (mapkit.Tuple, error) {
	ds := &Dataset{db: db, name: table, table: table}
	rows, err := ds.Where(pk+" = ?", id).Tuples(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no row with %s = %v", table, pk, id)
	}
	return rows[0], nil
}
