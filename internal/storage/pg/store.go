// Package pg implements the storage ports of the service layer on top of
// PostgreSQL via pgx. A single Store satisfies every service's Store
// interface; transactional consumers receive a tx-bound copy through InTx.
package pg

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/subscription"
	"github.com/sitewave/sitewave/internal/service/website"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    Querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// inTx runs fn inside a read-committed transaction. A Store that is already
// tx-bound reuses its transaction.
func (s *Store) inTx(ctx context.Context, fn func(*Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	err := s.pool.BeginTxFunc(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&Store{q: tx})
	})
	if err != nil {
		return errors.Wrap(err, "transaction failed")
	}

	return nil
}

// SubscriptionStore adapts Store to the subscription reconciler's port.
type SubscriptionStore struct {
	*Store
}

func (s SubscriptionStore) InTx(ctx context.Context, fn func(subscription.Store) error) error {
	return s.inTx(ctx, func(tx *Store) error {
		return fn(SubscriptionStore{tx})
	})
}

// WebsiteStore adapts Store to the website quota tracker's port.
type WebsiteStore struct {
	*Store
}

func (s WebsiteStore) InTx(ctx context.Context, fn func(website.Store) error) error {
	return s.inTx(ctx, func(tx *Store) error {
		return fn(WebsiteStore{tx})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
