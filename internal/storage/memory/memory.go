// internal/storage/memory/memory.go
// Package memory is an in-process Store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
)

// Store keeps accounts in maps guarded by one lock.
type Store struct {
	mu            sync.RWMutex
	pools         map[solana.PublicKey]*pool.Pool
	quoteConfigs  map[solana.PublicKey]*pool.QuoteConfig
	tokenAccounts map[solana.PublicKey]*storage.TokenAccount
	ammPools      map[solana.PublicKey]*storage.AmmPool
	commits       int
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		pools:         make(map[solana.PublicKey]*pool.Pool),
		quoteConfigs:  make(map[solana.PublicKey]*pool.QuoteConfig),
		tokenAccounts: make(map[solana.PublicKey]*storage.TokenAccount),
		ammPools:      make(map[solana.PublicKey]*storage.AmmPool),
	}
}

func (s *Store) GetPool(_ context.Context, key solana.PublicKey) (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[key]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", key, storage.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) GetQuoteConfig(_ context.Context, key solana.PublicKey) (*pool.QuoteConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.quoteConfigs[key]
	if !ok {
		return nil, fmt.Errorf("quote config %s: %w", key, storage.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *Store) GetTokenAccount(_ context.Context, key solana.PublicKey) (*storage.TokenAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.tokenAccounts[key]
	if !ok {
		return nil, fmt.Errorf("token account %s: %w", key, storage.ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *Store) GetAmmPool(_ context.Context, key solana.PublicKey) (*storage.AmmPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.ammPools[key]
	if !ok {
		return nil, fmt.Errorf("amm pool %s: %w", key, storage.ErrNotFound)
	}
	return a.Clone(), nil
}

// Commit checks the read set and applies every write in changes under the
// store lock.
func (s *Store) Commit(ctx context.Context, changes *storage.ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if changes == nil || changes.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, seen := range changes.Reads {
		current, err := s.encoded(ref)
		if err != nil {
			return err
		}
		if !bytes.Equal(current, seen) {
			return fmt.Errorf("%w: %s", storage.ErrConflict, ref)
		}
	}

	for k, v := range changes.Pools {
		s.pools[k] = v.Clone()
	}
	for k, v := range changes.QuoteConfigs {
		s.quoteConfigs[k] = v.Clone()
	}
	for k, v := range changes.TokenAccounts {
		s.tokenAccounts[k] = v.Clone()
	}
	for k, v := range changes.AmmPools {
		s.ammPools[k] = v.Clone()
	}
	s.commits++
	return nil
}

// encoded returns the stored form of ref, nil when absent. Callers hold mu.
func (s *Store) encoded(ref storage.Ref) ([]byte, error) {
	var record interface{}
	switch ref.Kind {
	case storage.KindPool:
		if v, ok := s.pools[ref.Key]; ok {
			record = v
		}
	case storage.KindQuoteConfig:
		if v, ok := s.quoteConfigs[ref.Key]; ok {
			record = v
		}
	case storage.KindTokenAccount:
		if v, ok := s.tokenAccounts[ref.Key]; ok {
			record = v
		}
	case storage.KindAmmPool:
		if v, ok := s.ammPools[ref.Key]; ok {
			record = v
		}
	default:
		return nil, fmt.Errorf("unknown record kind %q", ref.Kind)
	}
	if record == nil {
		return nil, nil
	}
	return storage.Encode(record)
}

// Commits reports how many non-empty change sets were applied.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func (s *Store) Close() error {
	return nil
}
