// cmd/migrator/seed.go
package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/ledger"
	"github.com/rovshanmuradov/pool-migrator/internal/logger"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/program"
	"github.com/rovshanmuradov/pool-migrator/internal/wallet"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		pf    poolFlags
		state string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run seed_spl in-process against the configured store",
		Long: "seed runs the migration program locally: the pool is read from the configured store " +
			"(optionally preloaded from --state), the AMM is simulated, and every write is committed at once.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSeed(cmd, &pf, state)
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().StringVar(&state, "state", "", "file describing the pool to preload (json or yaml)")
	return cmd
}

func (a *app) runSeed(cmd *cobra.Command, pf *poolFlags, state string) error {
	ctx := cmd.Context()
	log := a.log.WithComponent("seed")

	ids, err := a.cfg.ProgramIDs()
	if err != nil {
		return err
	}
	marketProgram, err := a.cfg.MarketProgramID()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	if state != "" {
		g, err := loadGenesis(state)
		if err != nil {
			return err
		}
		if pf.baseMint == "" {
			pf.baseMint = g.BaseMint
			pf.quoteMint = g.QuoteMint
		}
		addrs, err := g.Apply(ctx, store, ids)
		if err != nil {
			return err
		}
		log.Info("State loaded", zap.String("file", state), zap.String("pool", addrs.Pool.String()))
	}

	base, quote, market, err := pf.keys()
	if err != nil {
		return err
	}
	user, err := a.payer()
	if err != nil {
		return err
	}

	accounts, err := migration.DeriveSeedAccounts(ids, user, base, quote, marketProgram, market)
	if err != nil {
		return err
	}
	keys, err := amm.DerivePoolKeys(ids.AMM, market)
	if err != nil {
		return err
	}

	rt := ledger.NewRuntime(store, a.log.Logger,
		ledger.WithConflictRetries(a.cfg.Storage.ConflictRetries),
		ledger.WithProgram(ids.AMM, ledger.NewAMMSimulator(ids.AMM, a.log.Logger)))
	processor := program.NewProcessor(ids, rt, a.log.Logger)
	processor.SetMetrics(a.metrics)

	journal, err := a.openJournal()
	if err != nil {
		return err
	}

	receipt, runErr := processor.Process(ctx, program.EncodeSeedSPL(keys.Authority.Nonce), accounts.Metas())
	record(journal, log, accounts, receipt, runErr)
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pool:           %s\n", accounts.Pool)
	fmt.Fprintf(out, "correlation_id: %s\n", receipt.CorrelationID)
	fmt.Fprintf(out, "fee:            %d\n", receipt.Fee)
	fmt.Fprintf(out, "net_quote:      %d\n", receipt.NetQuote)
	fmt.Fprintf(out, "instruction:    %s\n", hex.EncodeToString(receipt.Instruction.Encode()))

	if ammPool, err := store.GetAmmPool(ctx, accounts.Amm); err == nil {
		fmt.Fprintf(out, "amm:            %s\n", accounts.Amm)
		fmt.Fprintf(out, "lp_supply:      %d (locked %d)\n", ammPool.LpSupply, ammPool.LpLocked)
	}
	return nil
}

// payer is the configured wallet, or a throwaway key when none is set.
func (a *app) payer() (solana.PublicKey, error) {
	if a.cfg.PrivateKey == "" {
		key := solana.NewWallet().PublicKey()
		a.log.Debug("No private_key configured, using an ephemeral payer", zap.String("payer", key.String()))
		return key, nil
	}
	w, err := wallet.Load(a.cfg.PrivateKey)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return w.PublicKey, nil
}

func loadGenesis(path string) (*program.Genesis, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", path, err)
	}
	var g program.Genesis
	if err := v.Unmarshal(&g); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", path, err)
	}
	return &g, nil
}

// record appends one attempt to the journal. Journal failures are logged and
// never change the outcome.
func record(j *logger.Journal, log *zap.Logger, accounts *migration.SeedAccounts, receipt *migration.Receipt, runErr error) {
	if j == nil {
		return
	}
	entry := logger.JournalEntry{
		Time:      time.Now(),
		Pool:      accounts.Pool.String(),
		BaseMint:  accounts.BaseMint.String(),
		QuoteMint: accounts.QuoteMint.String(),
		Status:    "migrated",
		Err:       runErr,
	}
	if runErr != nil {
		entry.Status = "failed"
		entry.CorrelationID = migration.CorrelationID(runErr)
	}
	if receipt != nil {
		entry.CorrelationID = receipt.CorrelationID
		entry.Fee = receipt.Fee
		entry.NetQuote = receipt.NetQuote
		if receipt.Instruction != nil {
			entry.BaseAmount = receipt.Instruction.PcAmount
		}
	}
	if err := j.Append(entry); err != nil {
		log.Warn("Failed to append journal entry", zap.Error(err))
	}
}

