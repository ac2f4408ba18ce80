// cmd/migrator/derive.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/spf13/cobra"
)

func newDeriveCommand(a *app) *cobra.Command {
	var (
		pf   poolFlags
		user string
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print every account of the seed_spl call for a pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			var userKey solana.PublicKey
			if user != "" {
				if userKey, err = solana.PublicKeyFromBase58(user); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			accounts, err := migration.DeriveSeedAccounts(ids, userKey, base, quote, marketProgram, market)
			if err != nil {
				return err
			}
			keys, err := amm.DerivePoolKeys(ids.AMM, market)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, meta := range accounts.Metas() {
				flags := ""
				if meta.IsWritable {
					flags += "w"
				}
				if meta.IsSigner {
					flags += "s"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, migration.SeedAccountNames[i], meta.PublicKey, flags)
			}
			fmt.Fprintf(tw, "\tnonce\t%d\t\n", keys.Authority.Nonce)
			return tw.Flush()
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().StringVar(&user, "user", "", "payer; defaults to the zero key")
	return cmd
}
