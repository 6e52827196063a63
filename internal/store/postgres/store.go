// Package postgres implements store.Store on PostgreSQL through a pgx pool.
//
// Ledger writes lock the book row with SELECT ... FOR UPDATE, so concurrent
// checkouts of one title queue on the row lock. The version check in UpdateBook
// stays in place as a second guard.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL error codes mapped to store errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Pool defaults.
const (
	defaultMaxConns          = int32(20)
	defaultMinConns          = int32(2)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = 5 * time.Second
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store provides PostgreSQL-backed persistence for the LibraryDesk server.
type Store struct {
	pool   *pgxpool.Pool
	q      query.Builder
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	cfg.MinConns = defaultMinConns
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		pool:   pool,
		q:      query.New(query.DialectPostgres, func(t time.Time) any { return t.UTC() }),
		logger: logger,
	}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn in a read committed transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&txStore{tx: tx, q: s.q}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// sqlBuilder is satisfied by goqu datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// selectOne runs a single-row goqu query and scans it by column name.
func selectOne[T any](ctx context.Context, q querier, ds sqlBuilder) (T, error) {
	var zero T
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return zero, mapError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, store.ErrNotFound
		}
		return zero, mapError(err)
	}
	return row, nil
}

// selectAll runs a goqu query and scans every row by column name.
func selectAll[T any](ctx context.Context, q querier, ds sqlBuilder) ([]T, error) {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

// count runs a COUNT(*) goqu query.
func count(ctx context.Context, q querier, ds sqlBuilder) (int, error) {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, mapError(err)
	}
	return int(n), nil
}

// execOne runs a statement expected to touch exactly one row.
// Zero affected rows returns missing.
func execOne(ctx context.Context, q querier, missing error, ds sqlBuilder) error {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	tag, err := q.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

// exec runs a statement built by goqu.
func exec(ctx context.Context, q querier, ds sqlBuilder) error {
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = q.Exec(ctx, sqlStr, args...)
	return mapError(err)
}

// mapError converts PostgreSQL constraint and locking failures into store errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return store.ErrAlreadyExists.WithCause(err)
	case codeForeignKeyViolation:
		return store.ErrInUse.WithCause(err)
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return store.ErrConflict.WithCause(err)
	default:
		return err
	}
}

func (s *Store) byID(table string, cols []any, id string) *goqu.SelectDataset {
	return s.q.Dialect().From(table).Prepared(true).
		Select(cols...).
		Where(goqu.C("id").Eq(id))
}

// CountBooks returns the number of catalogued titles.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return count(ctx, s.pool, s.q.Dialect().From(query.TableBooks).Select(goqu.COUNT(goqu.Star())))
}

// CountMembers returns the number of registered members.
func (s *Store) CountMembers(ctx context.Context) (int, error) {
	return count(ctx, s.pool, s.q.Dialect().From(query.TableMembers).Select(goqu.COUNT(goqu.Star())))
}

// ListBookEvents returns a book's circulation events, newest first.
func (s *Store) ListBookEvents(ctx context.Context, bookID string, limit int) ([]*domain.CirculationEvent, error) {
	rows, err := selectAll[eventRow](ctx, s.pool, s.q.BookEvents(bookID, limit))
	if err != nil {
		return nil, err
	}
	events := make([]*domain.CirculationEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toDomain())
	}
	return events, nil
}
