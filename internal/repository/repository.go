// Package repository provides data access interfaces and their PostgreSQL
// implementations for the research assistant service.
//
// # Repository Interfaces
//
//   - UserRepository: accounts, looked up by ID or email
//   - ProjectRepository: projects owned by a user
//   - DocumentRepository: uploaded files attached to a project
//   - DraftRepository: drafts and their citations, including the atomic
//     write of a survey result (draft + sources + citations)
//   - SourceRepository: paper briefs saved into a project
//   - JobRepository: background job status tracking
//
// # Ownership
//
// Reads that take a user ID are owner-scoped: a row that exists but belongs to
// another user is reported as domain.ErrNotFound, never as forbidden, so that
// IDs of other users' data are not disclosed.
//
// # Error Handling
//
// Methods return errors from the domain package:
//
//   - domain.ErrNotFound: resource does not exist or is not owned by the caller
//   - domain.ErrAlreadyExists: unique constraint violation (SQLSTATE 23505)
//   - domain.ErrInvalidInput: invalid parameters or a broken foreign key (23503)
//
// # Transactions
//
// Every repository takes a DBTX, so it works the same on a pool and inside a
// transaction:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgJobRepository(tx).Create(ctx, job)
//	})
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/research-assistant-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// txBeginner is implemented by pools (*database.DB, *pgxpool.Pool) but not by
// pgx.Tx. Multi-statement writes open their own transaction when they can.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// List pagination defaults and limits.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// applyPaginationDefaults clamps limit to [1, maxListLimit] and offset to >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultListLimit
	}
	if *limit > maxListLimit {
		*limit = maxListLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// inTx runs fn inside a transaction opened on db when db can begin one, and
// directly on db when db already is a transaction.
func inTx(ctx context.Context, db DBTX, fn func(q DBTX) error) error {
	beginner, ok := db.(txBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
