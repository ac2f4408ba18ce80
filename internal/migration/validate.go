// internal/migration/validate.go
package migration

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
)

// ProgramIDs names the two programs involved in a migration.
type ProgramIDs struct {
	Migrator solana.PublicKey
	AMM      solana.PublicKey
}

// Capabilities is the validated account set a migration runs with. The
// pool signer inside it can only be obtained through ValidateSeedAccounts.
type Capabilities struct {
	PoolSigner   *authority.Signer
	AmmAuthority authority.Address
	AmmProgram   solana.PublicKey

	BaseMint   solana.PublicKey
	QuoteMint  solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
	FeeVault   solana.PublicKey

	// Initialize is the AMM account list, coin side = quote asset.
	Initialize amm.InitializeAccounts
}

// ValidateSeedAccounts re-derives every program address in accounts and
// returns the capability set for a migration.
func ValidateSeedAccounts(accounts *SeedAccounts, ids ProgramIDs) (*Capabilities, error) {
	if accounts == nil {
		return nil, &ValidationError{Field: "accounts", Message: "missing"}
	}

	for _, check := range []struct {
		field     string
		got, want solana.PublicKey
	}{
		{"token_program", accounts.TokenProgram, solana.TokenProgramID},
		{"associated_token_program", accounts.AssociatedTokenProgram, solana.SPLAssociatedTokenAccountProgramID},
		{"system_program", accounts.SystemProgram, solana.SystemProgramID},
		{"rent", accounts.Rent, solana.SysVarRentPubkey},
		{"amm_program", accounts.AmmProgram, ids.AMM},
	} {
		if err := expectKey(check.field, check.got, check.want); err != nil {
			return nil, err
		}
	}

	if accounts.BaseMint.Equals(accounts.QuoteMint) {
		return nil, &ValidationError{Field: "quote_mint", Message: "must differ from base mint"}
	}

	signer, err := pool.Signer(ids.Migrator, accounts.BaseMint)
	if err != nil {
		return nil, err
	}
	if err := expectKey("pool", accounts.Pool, signer.PublicKey()); err != nil {
		return nil, err
	}

	addrs, err := pool.DeriveAddresses(ids.Migrator, accounts.BaseMint, accounts.QuoteMint)
	if err != nil {
		return nil, err
	}
	for _, check := range []struct {
		field     string
		got, want solana.PublicKey
	}{
		{"global", accounts.Global, addrs.Global},
		{"quote_config", accounts.QuoteConfig, addrs.QuoteConfig},
		{"base_vault", accounts.BaseVault, addrs.BaseVault},
		{"quote_vault", accounts.QuoteVault, addrs.QuoteVault},
		{"fee_collector", accounts.FeeCollector, addrs.FeeCollector},
		{"fee_vault", accounts.FeeVault, addrs.FeeVault},
	} {
		if err := expectKey(check.field, check.got, check.want); err != nil {
			return nil, err
		}
	}

	keys, err := amm.DerivePoolKeys(ids.AMM, accounts.Market)
	if err != nil {
		return nil, err
	}
	for _, check := range []struct {
		field     string
		got, want solana.PublicKey
	}{
		{"amm", accounts.Amm, keys.Amm},
		{"amm_config", accounts.AmmConfig, keys.Config},
		{"amm_authority", accounts.AmmAuthority, keys.Authority.Key},
		{"amm_open_orders", accounts.AmmOpenOrders, keys.OpenOrders},
		{"lp_mint", accounts.LpMint, keys.LpMint},
		{"pool_coin_token_account", accounts.AmmCoinVault, keys.CoinVault},
		{"pool_pc_token_account", accounts.AmmPcVault, keys.PcVault},
		{"amm_target_orders", accounts.AmmTarget, keys.TargetOrders},
		{"pool_temp_lp", accounts.TempLp, keys.TempLp},
	} {
		if err := expectKey(check.field, check.got, check.want); err != nil {
			return nil, err
		}
	}

	caps := &Capabilities{
		PoolSigner:   signer,
		AmmAuthority: keys.Authority,
		AmmProgram:   ids.AMM,
		BaseMint:     accounts.BaseMint,
		QuoteMint:    accounts.QuoteMint,
		BaseVault:    accounts.BaseVault,
		QuoteVault:   accounts.QuoteVault,
		FeeVault:     accounts.FeeVault,
		Initialize: amm.InitializeAccounts{
			Amm:            accounts.Amm,
			AmmAuthority:   accounts.AmmAuthority,
			OpenOrders:     accounts.AmmOpenOrders,
			LpMint:         accounts.LpMint,
			CoinMint:       accounts.QuoteMint,
			PcMint:         accounts.BaseMint,
			CoinVault:      accounts.AmmCoinVault,
			PcVault:        accounts.AmmPcVault,
			TargetOrders:   accounts.AmmTarget,
			AmmConfig:      accounts.AmmConfig,
			FeeDestination: accounts.FeeDestination,
			MarketProgram:  accounts.MarketProgram,
			Market:         accounts.Market,
			UserWallet:     accounts.Pool,
			UserTokenCoin:  accounts.QuoteVault,
			UserTokenPc:    accounts.BaseVault,
			UserTokenLp:    accounts.LpVault,
		},
	}

	if err := caps.Initialize.Validate(); err != nil {
		return nil, &ValidationError{Field: "amm_accounts", Message: err.Error()}
	}
	return caps, nil
}

func expectKey(field string, got, want solana.PublicKey) error {
	if !got.Equals(want) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("expected %s, got %s", want, got)}
	}
	return nil
}
