// internal/pool/pool.go
// Package pool models the bonding-curve pool record and the per-quote-asset
// configuration it is migrated under.
package pool

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Status is the lifecycle stage derived from the pool flags.
type Status uint8

const (
	StatusFunding Status = iota
	StatusFilled
	StatusMigrated
)

func (s Status) String() string {
	switch s {
	case StatusFunding:
		return "funding"
	case StatusFilled:
		return "filled"
	case StatusMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MaxSeedingFeeBps is 100% in basis points.
const MaxSeedingFeeBps uint16 = 10_000

var (
	ErrInvalidDiscriminator = errors.New("account discriminator mismatch")
	ErrInvalidState         = errors.New("pool flags are inconsistent")
)

var (
	poolDiscriminator        = accountDiscriminator("Pool")
	quoteConfigDiscriminator = accountDiscriminator("QuoteConfig")
)

// Pool is one bonding-curve pool awaiting or past migration.
type Pool struct {
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
	BaseReserve  uint64
	QuoteReserve uint64
	IsFilled     bool
	IsSeeded     bool
}

// Status reports where the pool is in its lifecycle.
func (p *Pool) Status() Status {
	switch {
	case p.IsSeeded:
		return StatusMigrated
	case p.IsFilled:
		return StatusFilled
	default:
		return StatusFunding
	}
}

// Validate checks the flag and reserve invariants of a persisted pool.
func (p *Pool) Validate() error {
	if p.IsSeeded && !p.IsFilled {
		return fmt.Errorf("%w: seeded before filled", ErrInvalidState)
	}
	if p.IsSeeded && (p.BaseReserve != 0 || p.QuoteReserve != 0) {
		return fmt.Errorf("%w: seeded pool holds reserves base=%d quote=%d",
			ErrInvalidState, p.BaseReserve, p.QuoteReserve)
	}
	return nil
}

// MarkMigrated moves the pool to its terminal form.
func (p *Pool) MarkMigrated() {
	p.IsSeeded = true
	p.BaseReserve = 0
	p.QuoteReserve = 0
}

// Clone returns an independent copy.
func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}

// QuoteConfig is the per-quote-asset migration configuration.
type QuoteConfig struct {
	QuoteMint     solana.PublicKey
	SeedingFeeBps uint16
	Decimals      uint8
}

// Validate checks the fee rate bound.
func (c *QuoteConfig) Validate() error {
	if c.SeedingFeeBps > MaxSeedingFeeBps {
		return fmt.Errorf("seeding fee %d bps exceeds %d", c.SeedingFeeBps, MaxSeedingFeeBps)
	}
	return nil
}

// Clone returns an independent copy.
func (c *QuoteConfig) Clone() *QuoteConfig {
	cc := *c
	return &cc
}

// MarshalPool serializes a pool as an Anchor account: discriminator + borsh body.
func MarshalPool(p *Pool) ([]byte, error) {
	return marshalAccount(poolDiscriminator, p)
}

// UnmarshalPool parses data written by MarshalPool.
func UnmarshalPool(data []byte) (*Pool, error) {
	p := new(Pool)
	if err := unmarshalAccount(poolDiscriminator, data, p); err != nil {
		return nil, fmt.Errorf("failed to decode pool: %w", err)
	}
	return p, nil
}

// MarshalQuoteConfig serializes a quote config as an Anchor account.
func MarshalQuoteConfig(c *QuoteConfig) ([]byte, error) {
	return marshalAccount(quoteConfigDiscriminator, c)
}

// UnmarshalQuoteConfig parses data written by MarshalQuoteConfig.
func UnmarshalQuoteConfig(data []byte) (*QuoteConfig, error) {
	c := new(QuoteConfig)
	if err := unmarshalAccount(quoteConfigDiscriminator, data, c); err != nil {
		return nil, fmt.Errorf("failed to decode quote config: %w", err)
	}
	return c, nil
}

func marshalAccount(discriminator [8]byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalAccount(discriminator [8]byte, data []byte, v interface{}) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: data too short (%d bytes)", ErrInvalidDiscriminator, len(data))
	}
	if !bytes.Equal(data[:8], discriminator[:]) {
		return fmt.Errorf("%w: got %x", ErrInvalidDiscriminator, data[:8])
	}
	return bin.NewBorshDecoder(data[8:]).Decode(v)
}

// accountDiscriminator mirrors Anchor: sha256("account:<Name>")[:8].
func accountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}
