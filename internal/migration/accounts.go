// internal/migration/accounts.go
package migration

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
)

// SeedAccountCount is the number of accounts the seed instruction takes.
const SeedAccountCount = 28

// SeedAccountNames labels the positions of SeedAccounts.Metas.
var SeedAccountNames = [SeedAccountCount]string{
	"user", "base_mint", "quote_mint", "global", "quote_config", "pool",
	"base_vault", "quote_vault", "fee_collector", "fee_vault",
	"amm_program", "amm", "amm_config", "amm_authority", "amm_open_orders",
	"lp_mint", "amm_coin_vault", "amm_pc_vault", "amm_target", "fee_destination",
	"temp_lp", "lp_vault", "market_program", "market",
	"token_program", "associated_token_program", "system_program", "rent",
}

// SeedAccounts lists every account the seed instruction receives, in order.
type SeedAccounts struct {
	User        solana.PublicKey
	BaseMint    solana.PublicKey
	QuoteMint   solana.PublicKey
	Global      solana.PublicKey
	QuoteConfig solana.PublicKey
	Pool        solana.PublicKey
	BaseVault   solana.PublicKey
	QuoteVault  solana.PublicKey

	FeeCollector solana.PublicKey
	FeeVault     solana.PublicKey

	AmmProgram     solana.PublicKey
	Amm            solana.PublicKey
	AmmConfig      solana.PublicKey
	AmmAuthority   solana.PublicKey
	AmmOpenOrders  solana.PublicKey
	LpMint         solana.PublicKey
	AmmCoinVault   solana.PublicKey
	AmmPcVault     solana.PublicKey
	AmmTarget      solana.PublicKey
	FeeDestination solana.PublicKey
	TempLp         solana.PublicKey
	LpVault        solana.PublicKey
	MarketProgram  solana.PublicKey
	Market         solana.PublicKey

	TokenProgram           solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
	SystemProgram          solana.PublicKey
	Rent                   solana.PublicKey
}

// Metas returns the positional account list of the seed instruction.
func (a *SeedAccounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.User, true, true),
		solana.NewAccountMeta(a.BaseMint, true, false),
		solana.NewAccountMeta(a.QuoteMint, true, false),
		solana.NewAccountMeta(a.Global, true, false),
		solana.NewAccountMeta(a.QuoteConfig, true, false),
		solana.NewAccountMeta(a.Pool, true, false),
		solana.NewAccountMeta(a.BaseVault, true, false),
		solana.NewAccountMeta(a.QuoteVault, true, false),
		solana.NewAccountMeta(a.FeeCollector, true, false),
		solana.NewAccountMeta(a.FeeVault, true, false),
		solana.NewAccountMeta(a.AmmProgram, false, false),
		solana.NewAccountMeta(a.Amm, true, false),
		solana.NewAccountMeta(a.AmmConfig, false, false),
		solana.NewAccountMeta(a.AmmAuthority, false, false),
		solana.NewAccountMeta(a.AmmOpenOrders, true, false),
		solana.NewAccountMeta(a.LpMint, true, false),
		solana.NewAccountMeta(a.AmmCoinVault, true, false),
		solana.NewAccountMeta(a.AmmPcVault, true, false),
		solana.NewAccountMeta(a.AmmTarget, true, false),
		solana.NewAccountMeta(a.FeeDestination, true, false),
		solana.NewAccountMeta(a.TempLp, true, false),
		solana.NewAccountMeta(a.LpVault, true, false),
		solana.NewAccountMeta(a.MarketProgram, false, false),
		solana.NewAccountMeta(a.Market, false, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.Rent, false, false),
	}
}

// ParseSeedAccounts maps a positional account list onto SeedAccounts.
func ParseSeedAccounts(metas solana.AccountMetaSlice) (*SeedAccounts, error) {
	if len(metas) < SeedAccountCount {
		return nil, &ValidationError{
			Field:   "accounts",
			Message: fmt.Sprintf("expected %d accounts, got %d", SeedAccountCount, len(metas)),
		}
	}

	keys := make([]solana.PublicKey, SeedAccountCount)
	for i := range keys {
		if metas[i] == nil {
			return nil, &ValidationError{Field: "accounts", Message: fmt.Sprintf("account %d is missing", i)}
		}
		keys[i] = metas[i].PublicKey
	}

	if !metas[0].IsSigner {
		return nil, &ValidationError{Field: "user", Message: "must sign"}
	}

	return &SeedAccounts{
		User:                   keys[0],
		BaseMint:               keys[1],
		QuoteMint:              keys[2],
		Global:                 keys[3],
		QuoteConfig:            keys[4],
		Pool:                   keys[5],
		BaseVault:              keys[6],
		QuoteVault:             keys[7],
		FeeCollector:           keys[8],
		FeeVault:               keys[9],
		AmmProgram:             keys[10],
		Amm:                    keys[11],
		AmmConfig:              keys[12],
		AmmAuthority:           keys[13],
		AmmOpenOrders:          keys[14],
		LpMint:                 keys[15],
		AmmCoinVault:           keys[16],
		AmmPcVault:             keys[17],
		AmmTarget:              keys[18],
		FeeDestination:         keys[19],
		TempLp:                 keys[20],
		LpVault:                keys[21],
		MarketProgram:          keys[22],
		Market:                 keys[23],
		TokenProgram:           keys[24],
		AssociatedTokenProgram: keys[25],
		SystemProgram:          keys[26],
		Rent:                   keys[27],
	}, nil
}

// DeriveSeedAccounts fills SeedAccounts for the pool of baseMint/quoteMint
// migrating onto market. The LP tokens go to the pool's associated account
// for the LP mint.
func DeriveSeedAccounts(ids ProgramIDs, user, baseMint, quoteMint, marketProgram, market solana.PublicKey) (*SeedAccounts, error) {
	addrs, err := pool.DeriveAddresses(ids.Migrator, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}
	keys, err := amm.DerivePoolKeys(ids.AMM, market)
	if err != nil {
		return nil, err
	}
	lpVault, _, err := solana.FindAssociatedTokenAddress(addrs.Pool, keys.LpMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive lp vault: %w", err)
	}

	return &SeedAccounts{
		User:                   user,
		BaseMint:               baseMint,
		QuoteMint:              quoteMint,
		Global:                 addrs.Global,
		QuoteConfig:            addrs.QuoteConfig,
		Pool:                   addrs.Pool,
		BaseVault:              addrs.BaseVault,
		QuoteVault:             addrs.QuoteVault,
		FeeCollector:           addrs.FeeCollector,
		FeeVault:               addrs.FeeVault,
		AmmProgram:             ids.AMM,
		Amm:                    keys.Amm,
		AmmConfig:              keys.Config,
		AmmAuthority:           keys.Authority.Key,
		AmmOpenOrders:          keys.OpenOrders,
		LpMint:                 keys.LpMint,
		AmmCoinVault:           keys.CoinVault,
		AmmPcVault:             keys.PcVault,
		AmmTarget:              keys.TargetOrders,
		FeeDestination:         amm.CreatePoolFeeDestination,
		TempLp:                 keys.TempLp,
		LpVault:                lpVault,
		MarketProgram:          marketProgram,
		Market:                 market,
		TokenProgram:           solana.TokenProgramID,
		AssociatedTokenProgram: solana.SPLAssociatedTokenAccountProgramID,
		SystemProgram:          solana.SystemProgramID,
		Rent:                   solana.SysVarRentPubkey,
	}, nil
}
