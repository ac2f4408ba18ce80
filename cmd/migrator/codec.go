// cmd/migrator/codec.go
package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/spf13/cobra"
)

func newEncodeCommand() *cobra.Command {
	var ix amm.InitializeInstruction
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode an AMM Initialize instruction as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(amm.Encode(&ix)))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Uint8Var(&ix.Nonce, "nonce", 0, "amm authority nonce")
	flags.Uint64Var(&ix.OpenTime, "open-time", 0, "pool open time, unix seconds")
	flags.Uint64Var(&ix.PcAmount, "pc", 0, "pc side amount (base reserve)")
	flags.Uint64Var(&ix.CoinAmount, "coin", 0, "coin side amount (net quote reserve)")
	return cmd
}

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex AMM instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[0]), "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}
			ix, err := amm.DecodeInitialize(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "instruction: initialize\n")
			fmt.Fprintf(out, "nonce:       %d\n", ix.Nonce)
			fmt.Fprintf(out, "open_time:   %d\n", ix.OpenTime)
			fmt.Fprintf(out, "pc_amount:   %d\n", ix.PcAmount)
			fmt.Fprintf(out, "coin_amount: %d\n", ix.CoinAmount)
			return nil
		},
	}
}
