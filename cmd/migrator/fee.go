// cmd/migrator/fee.go
package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/rovshanmuradov/pool-migrator/internal/curve"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newFeeCommand() *cobra.Command {
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "fee <quote-reserve> <fee-bps>",
		Short: "Compute the seeding fee and the net quote sent to the AMM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reserve, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quote reserve: %w", err)
			}
			bps, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid fee bps: %w", err)
			}

			fee, err := curve.SeedingFeeU64(reserve, uint16(bps))
			if err != nil {
				return err
			}
			net, err := curve.NetOfFee(reserve, fee)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reserve: %d (%s)\n", reserve, uiAmount(reserve, decimals))
			fmt.Fprintf(out, "rate:    %s%%\n", decimal.New(int64(bps), -2).String())
			fmt.Fprintf(out, "fee:     %d (%s)\n", fee, uiAmount(fee, decimals))
			fmt.Fprintf(out, "net:     %d (%s)\n", net, uiAmount(net, decimals))
			return nil
		},
	}
	cmd.Flags().Uint8Var(&decimals, "decimals", 9, "quote mint decimals, for display")
	return cmd
}

// uiAmount renders a raw token amount with the mint's decimals.
func uiAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals)).String()
}
