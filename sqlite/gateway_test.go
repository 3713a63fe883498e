package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const usersSchema = `
CREATE TABLE users (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	age   INTEGER NOT NULL DEFAULT 0
);
`

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(usersSchema)
	require.NoError(t, err)
	return db
}

func seedUsers(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, row := range [][]any{
		{"u1", "ada", 36},
		{"u2", "grace", 45},
		{"u3", "edsger", 40},
	} {
		_, err := db.Exec(`INSERT INTO users(id, name, age) VALUES(?, ?, ?)`, row...)
		require.NoError(t, err)
	}
}

func TestGatewayKind(t *testing.T) {
	t.Parallel()

	gw := NewGateway(testDB(t))
	require.Equal(t, "sqlite", gw.Kind())
}

func TestWithTxCommits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := testDB(t)
	err := WithTx(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO users(id, name, age) VALUES('u1', 'ada', 36)`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := testDB(t)
	boom := errors.New("abort")
	err := WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users(id, name, age) VALUES('u1', 'ada', 36)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count))
	require.Equal(t, 0, count)
}

func TestNowIsTruncatedUTC(t *testing.T) {
	t.Parallel()

	now := Now()
	require.Equal(t, now, now.Truncate(time.Second))
	_, offset := now.Zone()
	require.Equal(t, 0, offset)
}
