// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/database"
)

// Store is the pgx-backed store.
type Store struct {
	tx *database.TxManager
}

var _ store.Store = (*Store)(nil)

// New creates a Store over the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{tx: database.NewTxManager(pool)}
}

// WithinTx implements store.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(ctx, fn)
}

func (s *Store) db(ctx context.Context) database.Querier {
	return s.tx.Conn(ctx)
}

// notFound maps pgx.ErrNoRows onto store.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

// mustAffect turns a zero-row update or delete into store.ErrNotFound.
func mustAffect(rows int64, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
