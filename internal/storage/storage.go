// internal/storage/storage.go
// Package storage persists the account state migrations read and write.
package storage

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
)

var (
	ErrNotFound = errors.New("account not found")
	// ErrConflict means a record the transaction read was changed by another
	// writer before the commit. Nothing was written; the transaction can be
	// run again.
	ErrConflict = errors.New("write conflict")
)

// Kind names a record type.
type Kind string

const (
	KindPool         Kind = "pool"
	KindQuoteConfig  Kind = "quote_config"
	KindTokenAccount Kind = "token"
	KindAmmPool      Kind = "amm"
)

// Ref addresses one record.
type Ref struct {
	Kind Kind
	Key  solana.PublicKey
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.Key.String()
}

// Store holds program accounts keyed by address. Commit applies a change set
// atomically: either every write in it becomes visible or none does. It
// fails with ErrConflict when a record in the change set's read set no
// longer holds the observed value.
type Store interface {
	GetPool(ctx context.Context, key solana.PublicKey) (*pool.Pool, error)
	GetQuoteConfig(ctx context.Context, key solana.PublicKey) (*pool.QuoteConfig, error)
	GetTokenAccount(ctx context.Context, key solana.PublicKey) (*TokenAccount, error)
	GetAmmPool(ctx context.Context, key solana.PublicKey) (*AmmPool, error)

	Commit(ctx context.Context, changes *ChangeSet) error
	Close() error
}

// TokenAccount is an SPL token account.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// Clone returns an independent copy.
func (a *TokenAccount) Clone() *TokenAccount {
	c := *a
	return &c
}

// AmmPool is the state an AMM keeps for an initialized pool.
type AmmPool struct {
	Nonce     uint8
	OpenTime  uint64
	CoinMint  solana.PublicKey
	PcMint    solana.PublicKey
	CoinVault solana.PublicKey
	PcVault   solana.PublicKey
	LpMint    solana.PublicKey
	LpSupply  uint64
	LpLocked  uint64
	Market    solana.PublicKey
	CreatedBy solana.PublicKey
}

// Clone returns an independent copy.
func (a *AmmPool) Clone() *AmmPool {
	c := *a
	return &c
}

// Encode returns the stored form of a record.
func Encode(record interface{}) ([]byte, error) {
	switch r := record.(type) {
	case *pool.Pool:
		return pool.MarshalPool(r)
	case *pool.QuoteConfig:
		return pool.MarshalQuoteConfig(r)
	case *TokenAccount, *AmmPool:
		return bin.MarshalBorsh(r)
	default:
		return nil, fmt.Errorf("unsupported record type %T", record)
	}
}

// ChangeSet collects writes to be applied together, plus the stored form of
// every record they were computed from.
type ChangeSet struct {
	Pools         map[solana.PublicKey]*pool.Pool
	QuoteConfigs  map[solana.PublicKey]*pool.QuoteConfig
	TokenAccounts map[solana.PublicKey]*TokenAccount
	AmmPools      map[solana.PublicKey]*AmmPool

	// Reads maps each record read from the store to its encoded value at
	// read time. A nil value means the record was absent.
	Reads map[Ref][]byte
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Pools:         make(map[solana.PublicKey]*pool.Pool),
		QuoteConfigs:  make(map[solana.PublicKey]*pool.QuoteConfig),
		TokenAccounts: make(map[solana.PublicKey]*TokenAccount),
		AmmPools:      make(map[solana.PublicKey]*AmmPool),
		Reads:         make(map[Ref][]byte),
	}
}

// Observe records that record was read from the store at ref. A nil record
// marks the ref as absent. Later observations of the same ref are ignored.
func (c *ChangeSet) Observe(ref Ref, record interface{}) error {
	if _, ok := c.Reads[ref]; ok {
		return nil
	}
	if record == nil {
		c.Reads[ref] = nil
		return nil
	}
	data, err := Encode(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ref, err)
	}
	c.Reads[ref] = data
	return nil
}

// PutPool stages a pool write.
func (c *ChangeSet) PutPool(key solana.PublicKey, p *pool.Pool) *ChangeSet {
	c.Pools[key] = p.Clone()
	return c
}

// PutQuoteConfig stages a quote config write.
func (c *ChangeSet) PutQuoteConfig(key solana.PublicKey, cfg *pool.QuoteConfig) *ChangeSet {
	c.QuoteConfigs[key] = cfg.Clone()
	return c
}

// PutTokenAccount stages a token account write.
func (c *ChangeSet) PutTokenAccount(key solana.PublicKey, a *TokenAccount) *ChangeSet {
	c.TokenAccounts[key] = a.Clone()
	return c
}

// PutAmmPool stages an AMM pool write.
func (c *ChangeSet) PutAmmPool(key solana.PublicKey, a *AmmPool) *ChangeSet {
	c.AmmPools[key] = a.Clone()
	return c
}

// Len is the number of staged writes. Reads are not counted.
func (c *ChangeSet) Len() int {
	return len(c.Pools) + len(c.QuoteConfigs) + len(c.TokenAccounts) + len(c.AmmPools)
}
