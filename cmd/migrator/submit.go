// cmd/migrator/submit.go
package main

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/client"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSubmitCommand(a *app) *cobra.Command {
	var (
		pf     poolFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send the seed_spl transaction to the configured cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSubmit(cmd, &pf, dryRun)
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the preview without sending")
	return cmd
}

func (a *app) runSubmit(cmd *cobra.Command, pf *poolFlags, dryRun bool) error {
	ctx := cmd.Context()
	log := a.log.WithComponent("submit")

	if a.cfg.RPCURL == "" {
		return errors.New("rpc_url is not configured")
	}
	ids, err := a.cfg.ProgramIDs()
	if err != nil {
		return err
	}
	marketProgram, err := a.cfg.MarketProgramID()
	if err != nil {
		return err
	}
	base, quote, market, err := pf.keys()
	if err != nil {
		return err
	}
	w, err := wallet.Load(a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	sub, err := client.NewFromURL(a.cfg.RPCURL, w, ids, a.cfg.SubmitterOptions(), a.log.Logger)
	if err != nil {
		return err
	}
	sub.SetMetrics(a.metrics)
	req := client.Request{BaseMint: base, QuoteMint: quote, MarketProgram: marketProgram, Market: market}

	prepared, err := sub.Prepare(req)
	if err != nil {
		return err
	}
	preview, err := sub.Preview(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	decimals := preview.Config.Decimals
	fmt.Fprintf(out, "pool:        %s\n", prepared.Accounts.Pool)
	fmt.Fprintf(out, "payer:       %s\n", w)
	fmt.Fprintf(out, "base:        %d\n", preview.Reserves.Base)
	fmt.Fprintf(out, "quote:       %d (%s)\n", preview.Reserves.Quote, uiAmount(preview.Reserves.Quote, decimals))
	fmt.Fprintf(out, "fee:         %d (%s)\n", preview.Fee, uiAmount(preview.Fee, decimals))
	fmt.Fprintf(out, "net_quote:   %d (%s)\n", preview.NetQuote, uiAmount(preview.NetQuote, decimals))
	fmt.Fprintf(out, "nonce:       %d\n", prepared.Nonce)
	if dryRun {
		return nil
	}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}

	sig, runErr := sub.Submit(ctx, req)
	receipt := &migration.Receipt{
		Fee:      preview.Fee,
		NetQuote: preview.NetQuote,
		Instruction: &amm.InitializeInstruction{
			Nonce:      prepared.Nonce,
			PcAmount:   preview.Reserves.Base,
			CoinAmount: preview.NetQuote,
		},
	}
	if runErr == nil {
		receipt.CorrelationID = sig.String()
	}
	record(journal, log, prepared.Accounts, receipt, runErr)
	if runErr != nil {
		log.Error("seed_spl failed", zap.Uint32("code", migration.Code(runErr)), zap.Error(runErr))
		return runErr
	}

	fmt.Fprintf(out, "signature:   %s\n", sig)
	return nil
}
