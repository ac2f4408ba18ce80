// internal/program/genesis.go
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
)

// Genesis describes a pool to preload into a store, as a bonding curve
// would have left it. Vault balances default to the recorded reserves.
type Genesis struct {
	BaseMint      string  `mapstructure:"base_mint"`
	QuoteMint     string  `mapstructure:"quote_mint"`
	BaseReserve   uint64  `mapstructure:"base_reserve"`
	QuoteReserve  uint64  `mapstructure:"quote_reserve"`
	IsFilled      bool    `mapstructure:"is_filled"`
	SeedingFeeBps uint16  `mapstructure:"seeding_fee_bps"`
	Decimals      uint8   `mapstructure:"decimals"`
	VaultBase     *uint64 `mapstructure:"vault_base"`
	VaultQuote    *uint64 `mapstructure:"vault_quote"`
}

// Mints parses the configured mints.
func (g *Genesis) Mints() (base, quote solana.PublicKey, err error) {
	if base, err = solana.PublicKeyFromBase58(g.BaseMint); err != nil {
		return base, quote, fmt.Errorf("invalid base_mint: %w", err)
	}
	if quote, err = solana.PublicKeyFromBase58(g.QuoteMint); err != nil {
		return base, quote, fmt.Errorf("invalid quote_mint: %w", err)
	}
	return base, quote, nil
}

// Apply writes the pool, its quote config and vaults in one commit. An
// existing fee vault keeps its balance.
func (g *Genesis) Apply(ctx context.Context, store storage.Store, ids migration.ProgramIDs) (*pool.Addresses, error) {
	baseMint, quoteMint, err := g.Mints()
	if err != nil {
		return nil, err
	}
	addrs, err := pool.DeriveAddresses(ids.Migrator, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}

	p := &pool.Pool{
		BaseMint:     baseMint,
		QuoteMint:    quoteMint,
		BaseReserve:  g.BaseReserve,
		QuoteReserve: g.QuoteReserve,
		IsFilled:     g.IsFilled,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cfg := &pool.QuoteConfig{QuoteMint: quoteMint, SeedingFeeBps: g.SeedingFeeBps, Decimals: g.Decimals}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vaultBase, vaultQuote := g.BaseReserve, g.QuoteReserve
	if g.VaultBase != nil {
		vaultBase = *g.VaultBase
	}
	if g.VaultQuote != nil {
		vaultQuote = *g.VaultQuote
	}

	changes := storage.NewChangeSet().
		PutPool(addrs.Pool, p).
		PutQuoteConfig(addrs.QuoteConfig, cfg).
		PutTokenAccount(addrs.BaseVault, &storage.TokenAccount{Mint: baseMint, Owner: addrs.Pool, Amount: vaultBase}).
		PutTokenAccount(addrs.QuoteVault, &storage.TokenAccount{Mint: quoteMint, Owner: addrs.Pool, Amount: vaultQuote})

	_, err = store.GetTokenAccount(ctx, addrs.FeeVault)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		changes.PutTokenAccount(addrs.FeeVault, &storage.TokenAccount{Mint: quoteMint, Owner: addrs.FeeCollector})
	case err != nil:
		return nil, err
	}

	if err := store.Commit(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to commit genesis: %w", err)
	}
	return addrs, nil
}
