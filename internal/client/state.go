// internal/client/state.go
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pool-migrator/internal/curve"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"golang.org/x/sync/errgroup"
)

// ErrAccountNotFound is returned when an expected account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// Preview is the on-chain state of a pool and the amounts a migration
// would move right now.
type Preview struct {
	Pool     *pool.Pool
	Config   *pool.QuoteConfig
	Reserves migration.Reserves
	Fee      uint64
	NetQuote uint64
}

// Preview fetches the pool, its quote config and both vault balances
// concurrently and computes the seeding fee the program would charge. It
// returns the same precondition errors the program does, so callers can
// skip sending a transaction that is bound to fail.
func (s *Submitter) Preview(ctx context.Context, req Request) (*Preview, error) {
	addrs, err := pool.DeriveAddresses(s.ids.Migrator, req.BaseMint, req.QuoteMint)
	if err != nil {
		return nil, err
	}

	var (
		p        *pool.Pool
		cfg      *pool.QuoteConfig
		reserves migration.Reserves
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.accountData(gctx, addrs.Pool)
		if err != nil {
			return fmt.Errorf("pool: %w", err)
		}
		p, err = pool.UnmarshalPool(data)
		return err
	})
	g.Go(func() error {
		data, err := s.accountData(gctx, addrs.QuoteConfig)
		if err != nil {
			return fmt.Errorf("quote config: %w", err)
		}
		cfg, err = pool.UnmarshalQuoteConfig(data)
		return err
	})
	g.Go(func() error {
		amount, err := s.tokenBalance(gctx, addrs.BaseVault)
		reserves.Base = amount
		return err
	})
	g.Go(func() error {
		amount, err := s.tokenBalance(gctx, addrs.QuoteVault)
		reserves.Quote = amount
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case !p.IsFilled:
		return nil, migration.ErrTradingNotEnded
	case p.IsSeeded:
		return nil, migration.ErrAlreadyMigrated
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", migration.ErrInvalidFeeBps, err)
	}

	fee, err := curve.SeedingFeeU64(reserves.Quote, cfg.SeedingFeeBps)
	if err != nil {
		return nil, err
	}
	net, err := curve.NetOfFee(reserves.Quote, fee)
	if err != nil {
		return nil, err
	}
	return &Preview{Pool: p, Config: cfg, Reserves: reserves, Fee: fee, NetQuote: net}, nil
}

func (s *Submitter) accountData(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	res, err := s.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		return nil, err
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	if !res.Value.Owner.Equals(s.ids.Migrator) {
		return nil, fmt.Errorf("account %s is owned by %s", key, res.Value.Owner)
	}
	return res.Value.Data.GetBinary(), nil
}

func (s *Submitter) tokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := s.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance of %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q for %s: %w", res.Value.Amount, account, err)
	}
	return amount, nil
}
