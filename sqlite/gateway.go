// Package sqlite is the storage gateway for mapkit environments: datasets
// implementing the Relation contract over sqlite tables, and default
// create/update/delete command sets.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mapkit-go/mapkit"
)

// Open opens sqlite with sensible defaults.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return db, nil
}

// WithTx runs fn in a transaction.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Now returns UTC time truncated to seconds (consistent with SQLite default).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Gateway owns a sqlite handle and vends datasets and command sets for its
// tables. It implements mapkit.Repository.
type Gateway struct {
	db *sql.DB
}

// NewGateway wraps an open handle.
func NewGateway(db *sql.DB) *Gateway { return &Gateway{db: db} }

// Kind identifies the backend.
func (g *Gateway) Kind() string { return "sqlite" }

// DB exposes the underlying handle for bootstrap tasks (seeding, ad-hoc
// maintenance). Application reads and writes should go through the Env.
func (g *Gateway) DB() *sql.DB { return g.db }

// Close closes the underlying handle.
func (g *Gateway) Close() error { return g.db.Close() }

// Dataset returns a relation named name over table.
func (g *Gateway) Dataset(name, table string) *Dataset {
	return &Dataset{db: g.db, name: name, table: table}
}

// Commands returns the default create/update/delete set for table, scoped
// to the relation name. pk is the primary key column the update and delete
// commands address rows by.
func (g *Gateway) Commands(name, table, pk string) *mapkit.CommandSet {
	return mapkit.NewCommandSet(name, map[string]mapkit.Command{
		"create": &InsertCommand{db: g.db, table: table, pk: pk},
		"update": &UpdateCommand{db: g.db, table: table, pk: pk},
		"delete": &DeleteCommand{db: g.db, table: table, pk: pk},
	})
}
