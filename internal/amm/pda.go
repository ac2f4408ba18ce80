// internal/amm/pda.go
package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
)

// PoolKeys are the AMM-side addresses of a pool created for a market.
type PoolKeys struct {
	ProgramID    solana.PublicKey
	Market       solana.PublicKey
	Amm          solana.PublicKey
	Authority    authority.Address
	OpenOrders   solana.PublicKey
	LpMint       solana.PublicKey
	CoinVault    solana.PublicKey
	PcVault      solana.PublicKey
	TargetOrders solana.PublicKey
	Config       solana.PublicKey
	TempLp       solana.PublicKey
}

// DerivePoolKeys derives the market-associated accounts the AMM creates on initialize.
func DerivePoolKeys(programID, market solana.PublicKey) (*PoolKeys, error) {
	keys := &PoolKeys{ProgramID: programID, Market: market}

	associated := func(seed string) (solana.PublicKey, error) {
		addr, err := authority.FindAddress(programID, programID.Bytes(), market.Bytes(), []byte(seed))
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to derive %s: %w", seed, err)
		}
		return addr.Key, nil
	}

	for _, target := range []struct {
		seed string
		dst  *solana.PublicKey
	}{
		{AmmAssociatedSeed, &keys.Amm},
		{OpenOrdersAssociatedSeed, &keys.OpenOrders},
		{LpMintAssociatedSeed, &keys.LpMint},
		{CoinVaultAssociatedSeed, &keys.CoinVault},
		{PcVaultAssociatedSeed, &keys.PcVault},
		{TargetAssociatedSeed, &keys.TargetOrders},
		{TempLpTokenAssociatedSeed, &keys.TempLp},
	} {
		addr, err := associated(target.seed)
		if err != nil {
			return nil, err
		}
		*target.dst = addr
	}

	var err error
	keys.Authority, err = authority.FindAddress(programID, []byte(AmmAuthoritySeed))
	if err != nil {
		return nil, fmt.Errorf("failed to derive amm authority: %w", err)
	}

	config, err := authority.FindAddress(programID, []byte(AmmConfigSeed))
	if err != nil {
		return nil, fmt.Errorf("failed to derive amm config: %w", err)
	}
	keys.Config = config.Key

	return keys, nil
}
