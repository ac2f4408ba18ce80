// internal/ledger/ledger.go
// Package ledger is an in-process execution environment: every transaction
// sees its own staged writes and either commits all of them or none.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
	"go.uber.org/zap"
)

// DefaultConflictRetries bounds how often a transaction is re-run after a
// write conflict.
const DefaultConflictRetries = 5

// Runtime serializes transactions over a Store. Within one Runtime
// transactions never interleave; runtimes sharing a store are kept apart by
// the store's read-set check, and a transaction that loses is re-run on
// fresh state.
type Runtime struct {
	mu       sync.Mutex
	store    storage.Store
	programs map[solana.PublicKey]Program
	clock    func() time.Time
	retries  uint
	backoff  func() backoff.BackOff
	logger   *zap.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock replaces the wall clock transactions read.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) { r.clock = clock }
}

// WithConflictRetries sets how many times a conflicted transaction is re-run.
func WithConflictRetries(n uint) Option {
	return func(r *Runtime) { r.retries = n }
}

// WithProgram registers a program reachable through cross-program calls.
func WithProgram(id solana.PublicKey, p Program) Option {
	return func(r *Runtime) { r.programs[id] = p }
}

// NewRuntime creates a runtime over store.
func NewRuntime(store storage.Store, logger *zap.Logger, opts ...Option) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		store:    store,
		programs: make(map[solana.PublicKey]Program),
		clock:    time.Now,
		retries:  DefaultConflictRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 250 * time.Millisecond
			return b
		},
		logger: logger.Named("ledger"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Runtime) Store() storage.Store {
	return r.store
}

// Transact runs fn inside a transaction. Writes staged by fn are committed
// only if fn returns nil; otherwise they are dropped. When the commit fails
// with storage.ErrConflict, fn is run again against fresh state, so fn must
// not keep results from an earlier run.
func (r *Runtime) Transact(ctx context.Context, fn func(tx *Tx) error) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := r.transact(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, storage.ErrConflict):
			r.logger.Debug("Transaction conflicted",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(r.backoff()),
		backoff.WithMaxTries(r.retries+1))
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (r *Runtime) transact(ctx context.Context, fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Tx{
		runtime: r,
		now:     r.clock(),
		changes: storage.NewChangeSet(),
	}

	if err := fn(tx); err != nil {
		r.logger.Debug("Transaction rolled back",
			zap.Int("discarded_writes", tx.changes.Len()),
			zap.Error(err))
		return err
	}

	if err := r.store.Commit(ctx, tx.changes); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("Transaction committed", zap.Int("writes", tx.changes.Len()))
	return nil
}
