// Package repo contains all database access logic for the delivery-slot API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the minimal interface satisfied by *pgxpool.Pool and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test,
// giving per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type txKey struct{}

// TxManager runs a function inside a database transaction carried on the
// context. Repositories created from the same db pick the transaction up
// automatically, so a service can group several repo calls into one unit
// of work without passing pgx.Tx around.
type TxManager struct {
	db db
}

// NewTxManager constructs a TxManager over db.
func NewTxManager(db db) *TxManager {
	return &TxManager{db: db}
}

// WithTx runs fn inside a transaction. If ctx already carries one, fn joins
// it and the outer caller decides whether to commit.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TxManager.WithTx: begin: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TxManager.WithTx: commit: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// conn returns the transaction on ctx, or fallback when there is none.
func conn(ctx context.Context, fallback db) db {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// inTx runs fn on the transaction carried by ctx, or opens a short one on
// fallback when ctx carries none.
func inTx(ctx context.Context, fallback db, fn func(q db) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := fallback.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
