// internal/storage/redisstore/store.go
// Package redisstore is a Store backed by Redis. Commits WATCH the keys the
// transaction read and apply its writes in one MULTI/EXEC.
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
	"go.uber.org/zap"
)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, so several deployments can share a database.
	Prefix string
}

// Store implements storage.Store on Redis strings.
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// New connects and pings the server.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis db %d: %w", opts.DB, err)
	}

	return NewWithClient(client, opts.Prefix, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, prefix: prefix, logger: logger.Named("redis")}
}

func (s *Store) key(kind storage.Kind, addr solana.PublicKey) string {
	ref := storage.Ref{Kind: kind, Key: addr}
	if s.prefix == "" {
		return ref.String()
	}
	return s.prefix + ":" + ref.String()
}

func (s *Store) get(ctx context.Context, kind storage.Kind, addr solana.PublicKey) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(kind, addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s %s: %w", kind, addr, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, addr, err)
	}
	return data, nil
}

func (s *Store) GetPool(ctx context.Context, key solana.PublicKey) (*pool.Pool, error) {
	data, err := s.get(ctx, storage.KindPool, key)
	if err != nil {
		return nil, err
	}
	return pool.UnmarshalPool(data)
}

func (s *Store) GetQuoteConfig(ctx context.Context, key solana.PublicKey) (*pool.QuoteConfig, error) {
	data, err := s.get(ctx, storage.KindQuoteConfig, key)
	if err != nil {
		return nil, err
	}
	return pool.UnmarshalQuoteConfig(data)
}

func (s *Store) GetTokenAccount(ctx context.Context, key solana.PublicKey) (*storage.TokenAccount, error) {
	data, err := s.get(ctx, storage.KindTokenAccount, key)
	if err != nil {
		return nil, err
	}
	account := new(storage.TokenAccount)
	if err := bin.UnmarshalBorsh(account, data); err != nil {
		return nil, fmt.Errorf("failed to decode token account %s: %w", key, err)
	}
	return account, nil
}

func (s *Store) GetAmmPool(ctx context.Context, key solana.PublicKey) (*storage.AmmPool, error) {
	data, err := s.get(ctx, storage.KindAmmPool, key)
	if err != nil {
		return nil, err
	}
	account := new(storage.AmmPool)
	if err := bin.UnmarshalBorsh(account, data); err != nil {
		return nil, fmt.Errorf("failed to decode amm pool %s: %w", key, err)
	}
	return account, nil
}

type entry struct {
	key   string
	value []byte
}

// Commit encodes every write first. It then WATCHes the keys the
// transaction read, checks they still hold the observed values and applies
// the writes in one MULTI/EXEC. A concurrent change to any of them fails the
// commit with storage.ErrConflict.
func (s *Store) Commit(ctx context.Context, changes *storage.ChangeSet) error {
	if changes == nil || changes.Len() == 0 {
		return nil
	}

	entries := make([]entry, 0, changes.Len())
	add := func(kind storage.Kind, addr solana.PublicKey, record interface{}) error {
		data, err := storage.Encode(record)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", kind, addr, err)
		}
		entries = append(entries, entry{s.key(kind, addr), data})
		return nil
	}
	for k, v := range changes.Pools {
		if err := add(storage.KindPool, k, v); err != nil {
			return err
		}
	}
	for k, v := range changes.QuoteConfigs {
		if err := add(storage.KindQuoteConfig, k, v); err != nil {
			return err
		}
	}
	for k, v := range changes.TokenAccounts {
		if err := add(storage.KindTokenAccount, k, v); err != nil {
			return err
		}
	}
	for k, v := range changes.AmmPools {
		if err := add(storage.KindAmmPool, k, v); err != nil {
			return err
		}
	}

	reads := make([]entry, 0, len(changes.Reads))
	watched := make([]string, 0, len(changes.Reads))
	for ref, seen := range changes.Reads {
		key := s.key(ref.Kind, ref.Key)
		reads = append(reads, entry{key, seen})
		watched = append(watched, key)
	}

	apply := func(tx *redis.Tx) error {
		for _, r := range reads {
			current, err := tx.Get(ctx, r.key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				current = nil
			case err != nil:
				return fmt.Errorf("failed to read %s: %w", r.key, err)
			}
			if !bytes.Equal(current, r.value) {
				return fmt.Errorf("%w: %s", storage.ErrConflict, r.key)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, e := range entries {
				pipe.Set(ctx, e.key, e.value, 0)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, apply, watched...)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: watched keys changed during commit", storage.ErrConflict)
	case errors.Is(err, storage.ErrConflict):
		return err
	case err != nil:
		return fmt.Errorf("failed to commit %d writes: %w", len(entries), err)
	}

	s.logger.Debug("Committed change set",
		zap.Int("writes", len(entries)),
		zap.Int("watched", len(watched)))
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
