// Package sqlite implements store.Store on a single SQLite file.
//
// Every write transaction starts with BEGIN IMMEDIATE, so writers take the
// database write lock up front and queue behind each other (bounded by
// busy_timeout) instead of failing on lock upgrade halfway through a checkout.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is RFC3339 with a fixed nine-digit fraction so stored values
// compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides SQLite-backed persistence for the LibraryDesk server.
type Store struct {
	db     *sqlx.DB
	q      query.Builder
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// dsn builds the connection string. Pragmas given here apply to every pooled
// connection, which matters for foreign_keys since it is per-connection.
func dsn(path string) string {
	params := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

// Open creates a new SQLite store at the given path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:     db,
		q:      query.New(query.DialectSQLite, func(t time.Time) any { return formatTime(t) }),
		logger: logger,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn in an immediate transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&txStore{tx: tx, q: s.q}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// sqlBuilder is satisfied by goqu datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// selectOne runs a single-row goqu query and scans it into dest.
func selectOne(ctx context.Context, q sqlx.QueryerContext, ds sqlBuilder, dest any) error {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, dest, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// selectAll runs a goqu query and scans all rows into dest (a slice pointer).
func selectAll(ctx context.Context, q sqlx.QueryerContext, ds sqlBuilder, dest any) error {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, sqlStr, args...)
}

// count runs a COUNT(*) goqu query.
func count(ctx context.Context, q sqlx.QueryerContext, ds sqlBuilder) (int, error) {
	var n int
	if err := selectOne(ctx, q, ds, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// execOne runs a statement expected to touch exactly one row.
// Zero affected rows returns missing.
func execOne(ctx context.Context, e sqlx.ExecerContext, missing error, sqlStr string, args ...any) error {
	res, err := e.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// mapError converts SQLite constraint and locking failures into store errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return store.ErrAlreadyExists.WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.ErrInUse.WithCause(err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return store.ErrConflict.WithCause(err)
	default:
		return err
	}
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional stored timestamp.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
