// internal/program/processor.go
// Package program runs the migrator's instructions against the ledger.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/ledger"
	"github.com/rovshanmuradov/pool-migrator/internal/logger"
	"github.com/rovshanmuradov/pool-migrator/internal/metrics"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
	"go.uber.org/zap"
)

// Processor dispatches instructions addressed to the migrator program.
type Processor struct {
	ids      migration.ProgramIDs
	runtime  *ledger.Runtime
	migrator *migration.Migrator
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewProcessor creates a processor over runtime.
func NewProcessor(ids migration.ProgramIDs, runtime *ledger.Runtime, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		ids:      ids,
		runtime:  runtime,
		migrator: migration.NewMigrator(logger),
		logger:   logger.Named("program"),
	}
}

// SetMetrics makes the processor count outcomes in m.
func (p *Processor) SetMetrics(m *metrics.Collector) {
	p.metrics = m
}

// Process decodes instruction data and runs the matching handler. Errors are
// *migration.AttemptError values carrying the attempt's correlation id.
func (p *Processor) Process(ctx context.Context, data []byte, accounts solana.AccountMetaSlice) (*migration.Receipt, error) {
	id := logger.NewCorrelationID()
	args, err := DecodeSeedSPL(data)
	if err != nil {
		return nil, &migration.AttemptError{CorrelationID: id, Err: fmt.Errorf("invalid instruction data: %w", err)}
	}
	return p.seedSPL(ctx, id, accounts, args.Nonce)
}

// SeedSPL migrates one pool into the AMM. Every write happens in a single
// ledger transaction.
func (p *Processor) SeedSPL(ctx context.Context, metas solana.AccountMetaSlice, nonce uint8) (*migration.Receipt, error) {
	return p.seedSPL(ctx, logger.NewCorrelationID(), metas, nonce)
}

func (p *Processor) seedSPL(ctx context.Context, id string, metas solana.AccountMetaSlice, nonce uint8) (*migration.Receipt, error) {
	fail := func(err error) (*migration.Receipt, error) {
		return nil, &migration.AttemptError{CorrelationID: id, Err: err}
	}

	accounts, err := migration.ParseSeedAccounts(metas)
	if err != nil {
		return fail(err)
	}
	caps, err := migration.ValidateSeedAccounts(accounts, p.ids)
	if err != nil {
		p.logger.Warn("Account validation failed",
			zap.String("correlation_id", id),
			zap.Error(err))
		return fail(err)
	}

	poolKey := caps.PoolSigner.PublicKey()
	var receipt *migration.Receipt
	started := time.Now()

	err = p.runtime.Transact(ctx, func(tx *ledger.Tx) error {
		record, err := tx.Pool(ctx, poolKey)
		if err != nil {
			return fmt.Errorf("failed to load pool: %w", err)
		}
		config, err := tx.QuoteConfig(ctx, accounts.QuoteConfig)
		if err != nil {
			return fmt.Errorf("failed to load quote config: %w", err)
		}
		baseVault, err := tx.TokenAccount(ctx, caps.BaseVault)
		if err != nil {
			return fmt.Errorf("failed to load base vault: %w", err)
		}
		quoteVault, err := tx.TokenAccount(ctx, caps.QuoteVault)
		if err != nil {
			return fmt.Errorf("failed to load quote vault: %w", err)
		}

		if err := checkState(caps, record.BaseMint, record.QuoteMint, config.QuoteMint, baseVault, quoteVault); err != nil {
			return err
		}

		receipt, err = p.migrator.Migrate(ctx, migration.Input{
			Pool:          record,
			Config:        config,
			Reserves:      migration.Reserves{Base: baseVault.Amount, Quote: quoteVault.Amount},
			Now:           tx.Now().Unix(),
			Nonce:         nonce,
			CorrelationID: id,
			Accounts:      caps,
			Transfer:      tx,
			AMM:           tx.Program(caps.AmmProgram),
		})
		if err != nil {
			return err
		}

		tx.SetPool(poolKey, record)
		return nil
	})
	var fee uint64
	if receipt != nil && err == nil {
		fee = receipt.Fee
	}
	p.metrics.RecordMigration("local", accounts.QuoteMint.String(), fee, time.Since(started), err)
	if err != nil {
		p.logger.Error("seed_spl failed",
			zap.String("pool", poolKey.String()),
			zap.String("correlation_id", id),
			zap.Uint32("code", migration.Code(err)),
			zap.Error(err))
		return fail(err)
	}

	return receipt, nil
}

// checkState enforces the ownership and mint constraints on the loaded accounts.
func checkState(caps *migration.Capabilities, recordBase, recordQuote, configQuote solana.PublicKey, baseVault, quoteVault *storage.TokenAccount) error {
	poolKey := caps.PoolSigner.PublicKey()

	for _, check := range []struct {
		field     string
		got, want solana.PublicKey
	}{
		{"pool.base_mint", recordBase, caps.BaseMint},
		{"pool.quote_mint", recordQuote, caps.QuoteMint},
		{"quote_config.quote_mint", configQuote, caps.QuoteMint},
		{"base_vault.mint", baseVault.Mint, caps.BaseMint},
		{"base_vault.owner", baseVault.Owner, poolKey},
		{"quote_vault.mint", quoteVault.Mint, caps.QuoteMint},
		{"quote_vault.owner", quoteVault.Owner, poolKey},
	} {
		if !check.got.Equals(check.want) {
			return &migration.ValidationError{
				Field:   check.field,
				Message: fmt.Sprintf("expected %s, got %s", check.want, check.got),
			}
		}
	}
	return nil
}
