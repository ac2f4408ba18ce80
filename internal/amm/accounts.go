// internal/amm/accounts.go
package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Positions inside the initialize account list. The AMM reads the list
// positionally, so any reordering makes it reject the call.
const (
	IndexTokenProgram = iota
	IndexAssociatedTokenProgram
	IndexSystemProgram
	IndexRent
	IndexAmm
	IndexAmmAuthority
	IndexOpenOrders
	IndexLpMint
	IndexCoinMint
	IndexPcMint
	IndexCoinVault
	IndexPcVault
	IndexTargetOrders
	IndexAmmConfig
	IndexFeeDestination
	IndexMarketProgram
	IndexMarket
	IndexUserWallet
	IndexUserTokenCoin
	IndexUserTokenPc
	IndexUserTokenLp

	InitializeAccountCount
)

// InitializeAccounts holds every account initialize2 needs.
type InitializeAccounts struct {
	// AMM accounts
	Amm            solana.PublicKey
	AmmAuthority   solana.PublicKey
	OpenOrders     solana.PublicKey
	LpMint         solana.PublicKey
	CoinMint       solana.PublicKey
	PcMint         solana.PublicKey
	CoinVault      solana.PublicKey
	PcVault        solana.PublicKey
	TargetOrders   solana.PublicKey
	AmmConfig      solana.PublicKey
	FeeDestination solana.PublicKey

	// Market accounts
	MarketProgram solana.PublicKey
	Market        solana.PublicKey

	// User side: the wallet signs and funds the pool from its token accounts
	UserWallet    solana.PublicKey
	UserTokenCoin solana.PublicKey
	UserTokenPc   solana.PublicKey
	UserTokenLp   solana.PublicKey
}

// Validate checks that no account was left unset.
func (a *InitializeAccounts) Validate() error {
	for _, check := range []struct {
		key  solana.PublicKey
		name string
	}{
		{a.Amm, "amm"},
		{a.AmmAuthority, "amm authority"},
		{a.OpenOrders, "open orders"},
		{a.LpMint, "lp mint"},
		{a.CoinMint, "coin mint"},
		{a.PcMint, "pc mint"},
		{a.CoinVault, "coin vault"},
		{a.PcVault, "pc vault"},
		{a.TargetOrders, "target orders"},
		{a.AmmConfig, "amm config"},
		{a.FeeDestination, "fee destination"},
		{a.MarketProgram, "market program"},
		{a.Market, "market"},
		{a.UserWallet, "user wallet"},
		{a.UserTokenCoin, "user token coin"},
		{a.UserTokenPc, "user token pc"},
		{a.UserTokenLp, "user token lp"},
	} {
		if check.key.IsZero() {
			return fmt.Errorf("%s account is required", check.name)
		}
	}
	return nil
}

// Metas returns the account list in the order initialize2 expects.
func (a *InitializeAccounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		// spl & sys
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),

		// amm
		solana.NewAccountMeta(a.Amm, true, false),
		solana.NewAccountMeta(a.AmmAuthority, false, false),
		solana.NewAccountMeta(a.OpenOrders, true, false),
		solana.NewAccountMeta(a.LpMint, true, false),
		solana.NewAccountMeta(a.CoinMint, false, false),
		solana.NewAccountMeta(a.PcMint, false, false),
		solana.NewAccountMeta(a.CoinVault, true, false),
		solana.NewAccountMeta(a.PcVault, true, false),
		solana.NewAccountMeta(a.TargetOrders, true, false),
		solana.NewAccountMeta(a.AmmConfig, false, false),
		solana.NewAccountMeta(a.FeeDestination, true, false),

		// market
		solana.NewAccountMeta(a.MarketProgram, false, false),
		solana.NewAccountMeta(a.Market, false, false),

		// user wallet
		solana.NewAccountMeta(a.UserWallet, true, true),
		solana.NewAccountMeta(a.UserTokenCoin, true, false),
		solana.NewAccountMeta(a.UserTokenPc, true, false),
		solana.NewAccountMeta(a.UserTokenLp, true, false),
	}
}

// NewInitializeInstruction assembles a complete initialize2 instruction.
func NewInitializeInstruction(programID solana.PublicKey, accounts *InitializeAccounts, ix *InitializeInstruction) (solana.Instruction, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("amm program id is required")
	}
	if err := accounts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid accounts: %w", err)
	}
	return solana.NewInstruction(programID, accounts.Metas(), ix.Encode()), nil
}

// ParseInitializeAccounts maps a positional account list back to named accounts.
func ParseInitializeAccounts(metas solana.AccountMetaSlice) (*InitializeAccounts, error) {
	if len(metas) < InitializeAccountCount {
		return nil, fmt.Errorf("initialize expects %d accounts, got %d", InitializeAccountCount, len(metas))
	}
	for i, m := range metas[:InitializeAccountCount] {
		if m == nil {
			return nil, fmt.Errorf("account %d is missing", i)
		}
	}

	return &InitializeAccounts{
		Amm:            metas[IndexAmm].PublicKey,
		AmmAuthority:   metas[IndexAmmAuthority].PublicKey,
		OpenOrders:     metas[IndexOpenOrders].PublicKey,
		LpMint:         metas[IndexLpMint].PublicKey,
		CoinMint:       metas[IndexCoinMint].PublicKey,
		PcMint:         metas[IndexPcMint].PublicKey,
		CoinVault:      metas[IndexCoinVault].PublicKey,
		PcVault:        metas[IndexPcVault].PublicKey,
		TargetOrders:   metas[IndexTargetOrders].PublicKey,
		AmmConfig:      metas[IndexAmmConfig].PublicKey,
		FeeDestination: metas[IndexFeeDestination].PublicKey,
		MarketProgram:  metas[IndexMarketProgram].PublicKey,
		Market:         metas[IndexMarket].PublicKey,
		UserWallet:     metas[IndexUserWallet].PublicKey,
		UserTokenCoin:  metas[IndexUserTokenCoin].PublicKey,
		UserTokenPc:    metas[IndexUserTokenPc].PublicKey,
		UserTokenLp:    metas[IndexUserTokenLp].PublicKey,
	}, nil
}
