// internal/migration/migration.go
// Package migration moves a sold-out bonding-curve pool into an AMM pool.
package migration

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
	"github.com/rovshanmuradov/pool-migrator/internal/curve"
	"github.com/rovshanmuradov/pool-migrator/internal/logger"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"go.uber.org/zap"
)

// TransferParams describes one checked token transfer.
type TransferParams struct {
	Mint      solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Amount    uint64
	Decimals  uint8
	Authority *authority.Signer
}

// TokenTransferer moves tokens between accounts under a derived authority.
type TokenTransferer interface {
	TransferChecked(ctx context.Context, params TransferParams) error
}

// Reserves is a snapshot of the pool vault balances.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// Input carries everything one migration call reads and the capabilities it
// acts through. Pool is updated in place only when the call succeeds.
type Input struct {
	Pool     *pool.Pool
	Config   *pool.QuoteConfig
	Reserves Reserves
	// Now is the unix timestamp the AMM pool opens at.
	Now int64
	// Nonce is the AMM authority bump supplied with the request.
	Nonce uint8
	// CorrelationID tags logs and the receipt. A fresh id is generated when empty.
	CorrelationID string
	Accounts      *Capabilities
	Transfer      TokenTransferer
	AMM           amm.Program
}

// Receipt summarizes a completed migration.
type Receipt struct {
	CorrelationID string
	Fee           uint64
	NetQuote      uint64
	Instruction   *amm.InitializeInstruction
}

// Migrator drives pools from filled to migrated.
type Migrator struct {
	logger *zap.Logger
}

// NewMigrator creates a migrator.
func NewMigrator(l *zap.Logger) *Migrator {
	if l == nil {
		l = zap.NewNop()
	}
	return &Migrator{logger: l.Named("migration")}
}

// Migrate transfers the seeding fee, initializes the AMM pool with the
// remaining reserves and marks the pool migrated.
//
// Nothing is rolled back here: a failure after the fee transfer relies on the
// surrounding transaction discarding every write of the call.
func (m *Migrator) Migrate(ctx context.Context, in Input) (*Receipt, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	p := in.Pool
	switch {
	case !p.IsFilled:
		return nil, ErrTradingNotEnded
	case p.IsSeeded:
		return nil, ErrAlreadyMigrated
	}

	if err := in.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeeBps, err)
	}
	if in.Nonce != in.Accounts.AmmAuthority.Nonce {
		return nil, fmt.Errorf("%w: got %d, derived %d", ErrInvalidNonce, in.Nonce, in.Accounts.AmmAuthority.Nonce)
	}
	if in.Now < 0 {
		return nil, fmt.Errorf("%w: clock reads %d", ErrArithmeticUnderflow, in.Now)
	}

	correlationID := in.CorrelationID
	if correlationID == "" {
		correlationID = logger.NewCorrelationID()
	}
	log := logger.WithCorrelationID(m.logger, "migrate", correlationID)
	log = log.With(
		zap.String("pool", in.Accounts.PoolSigner.PublicKey().String()),
		zap.String("base_mint", p.BaseMint.String()),
		zap.String("quote_mint", p.QuoteMint.String()))

	// Vault balances are authoritative.
	if p.BaseReserve != in.Reserves.Base || p.QuoteReserve != in.Reserves.Quote {
		log.Warn("Pool record disagrees with vault balances",
			zap.Uint64("record_base", p.BaseReserve),
			zap.Uint64("record_quote", p.QuoteReserve),
			zap.Uint64("vault_base", in.Reserves.Base),
			zap.Uint64("vault_quote", in.Reserves.Quote))
	}

	fee, err := curve.SeedingFeeU64(in.Reserves.Quote, in.Config.SeedingFeeBps)
	if err != nil {
		return nil, &StageError{Stage: "fee", Err: err}
	}
	netQuote, err := curve.NetOfFee(in.Reserves.Quote, fee)
	if err != nil {
		return nil, &StageError{Stage: "fee", Err: err}
	}

	log.Debug("Computed seeding fee",
		zap.Uint64("quote_reserve", in.Reserves.Quote),
		zap.Uint16("fee_bps", in.Config.SeedingFeeBps),
		zap.Uint64("fee", fee),
		zap.Uint64("net_quote", netQuote))

	err = in.Transfer.TransferChecked(ctx, TransferParams{
		Mint:      in.Accounts.QuoteMint,
		From:      in.Accounts.QuoteVault,
		To:        in.Accounts.FeeVault,
		Amount:    fee,
		Decimals:  in.Config.Decimals,
		Authority: in.Accounts.PoolSigner,
	})
	if err != nil {
		log.Error("Fee transfer failed", zap.Error(err))
		return nil, &StageError{Stage: "fee transfer", Err: fmt.Errorf("%w: %w", ErrTransferFailed, err)}
	}

	ix := &amm.InitializeInstruction{
		Nonce:      in.Nonce,
		OpenTime:   uint64(in.Now),
		PcAmount:   in.Reserves.Base,
		CoinAmount: netQuote,
	}
	data := ix.Encode()

	log.Info("Running amm initialize",
		zap.Uint8("nonce", ix.Nonce),
		zap.Uint64("open_time", ix.OpenTime),
		zap.Uint64("pc_amount", ix.PcAmount),
		zap.Uint64("coin_amount", ix.CoinAmount))

	if err := in.AMM.Execute(ctx, data, in.Accounts.Initialize.Metas(), in.Accounts.PoolSigner); err != nil {
		log.Error("AMM initialize rejected", zap.Error(err))
		return nil, &StageError{Stage: "amm initialize", Err: fmt.Errorf("%w: %w", ErrExternalCallFailed, err)}
	}

	p.MarkMigrated()

	log.Info("Pool migrated", zap.Uint64("fee", fee), zap.Uint64("net_quote", netQuote))

	return &Receipt{
		CorrelationID: correlationID,
		Fee:           fee,
		NetQuote:      netQuote,
		Instruction:   ix,
	}, nil
}

func (in *Input) check() error {
	switch {
	case in.Pool == nil:
		return fmt.Errorf("pool is required")
	case in.Config == nil:
		return fmt.Errorf("quote config is required")
	case in.Accounts == nil || in.Accounts.PoolSigner == nil:
		return fmt.Errorf("%w: validated accounts are required", ErrInvalidAccount)
	case in.Transfer == nil:
		return fmt.Errorf("token transferer is required")
	case in.AMM == nil:
		return fmt.Errorf("amm program is required")
	}
	if !in.Accounts.PoolSigner.Authorizes(in.Accounts.Initialize.UserWallet) {
		return &ValidationError{Field: "user_wallet", Message: "pool signer does not control the amm user wallet"}
	}
	return nil
}
