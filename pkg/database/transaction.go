package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const txKey = txContextKey("tx-context-key")

// Tx is a transaction handle. Commit and Rollback are no-ops on handles that
// joined an existing context transaction; only the handle that opened the
// transaction closes it.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

type txState struct {
	tx     *sqlx.Tx
	closed bool
}

// Transaction wraps sqlx.Tx with joined-transaction semantics.
type Transaction struct {
	state  *txState
	owner  bool
	logger ectologger.Logger
}

// GetTx returns the transaction carried by ctx if one is still open, otherwise
// it begins a new one and stores it in the returned context. Repository
// methods call this unconditionally: inside a coordinator transaction they
// join it, standalone they get a short transaction of their own.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if state, ok := ctx.Value(txKey).(*txState); ok && !state.closed {
		return ctx, &Transaction{state: state, owner: false, logger: logger}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction")
	}

	state := &txState{tx: tx}
	ctx = context.WithValue(ctx, txKey, state)
	return ctx, &Transaction{state: state, owner: true, logger: logger}, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.state.closed
}

// Commit commits the transaction if this handle owns it.
func (t *Transaction) Commit(ctx context.Context) error {
	if !t.owner || t.state.closed {
		return nil
	}

	if err := t.state.tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction")
	}

	t.state.closed = true
	return nil
}

// Rollback rolls the transaction back if this handle owns it and it is still
// open. Safe to defer alongside a later Commit.
func (t *Transaction) Rollback(ctx context.Context) error {
	if !t.owner || t.state.closed {
		return nil
	}

	if err := t.state.tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction")
	}

	t.state.closed = true
	return nil
}

func (t *Transaction) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.state.tx.ExecContext(ctx, query, args...)
}

func (t *Transaction) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.state.tx.GetContext(ctx, dest, query, args...)
}

func (t *Transaction) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.state.tx.SelectContext(ctx, dest, query, args...)
}

func (t *Transaction) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.state.tx.QueryRowContext(ctx, query, args...)
}

func (t *Transaction) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return t.state.tx.QueryRowxContext(ctx, query, args...)
}
