package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/workflow"
)

const (
	txMaxRetries    = 5
	txMaxElapsed    = 5 * time.Second
	sqlSerialFail   = "40001"
	sqlDeadlockFail = "40P01"
)

// RunInTx runs fn in a transaction and commits when fn returns nil. Called
// on a transactional store it opens a savepoint instead, so a failing fn
// only rolls back its own writes.
//
// Top-level transactions that lose a serialization race or a deadlock are
// retried from scratch with exponential backoff; fn must therefore be safe
// to run more than once.
func (s *Store) RunInTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	if s.pool == nil {
		return s.runOnce(ctx, fn)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxElapsedTime = txMaxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.runOnce(ctx, fn)
		if err != nil && isRetryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("postgres: retrying transaction")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, txMaxRetries), ctx))
}

func (s *Store) runOnce(ctx context.Context, fn func(tx workflow.Store) error) error {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Store.RunInTx: begin: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Store.RunInTx: commit: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlSerialFail || pgErr.Code == sqlDeadlockFail
}
