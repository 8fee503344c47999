package sqlite

import (
	"context"
	"database/sql"

	"github.com/berthd/berth/internal/berth/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer DB stays open after the caller commits or
// rolls back.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op inside a transaction; migrations run before
// any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users             { return &usersRepo{q: t.tx} }
func (t *txStore) Deployments() store.Deployments { return &deploymentsRepo{q: t.tx} }
func (t *txStore) RootDomains() store.RootDomains { return &rootDomainsRepo{q: t.tx} }
