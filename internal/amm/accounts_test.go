// internal/amm/accounts_test.go
package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccounts(t *testing.T) *InitializeAccounts {
	t.Helper()

	market := solana.NewWallet().PublicKey()
	keys, err := DerivePoolKeys(RaydiumV4ProgramID, market)
	require.NoError(t, err)

	return &InitializeAccounts{
		Amm:            keys.Amm,
		AmmAuthority:   keys.Authority.Key,
		OpenOrders:     keys.OpenOrders,
		LpMint:         keys.LpMint,
		CoinMint:       solana.NewWallet().PublicKey(),
		PcMint:         solana.NewWallet().PublicKey(),
		CoinVault:      keys.CoinVault,
		PcVault:        keys.PcVault,
		TargetOrders:   keys.TargetOrders,
		AmmConfig:      keys.Config,
		FeeDestination: CreatePoolFeeDestination,
		MarketProgram:  OpenBookProgramID,
		Market:         market,
		UserWallet:     solana.NewWallet().PublicKey(),
		UserTokenCoin:  solana.NewWallet().PublicKey(),
		UserTokenPc:    solana.NewWallet().PublicKey(),
		UserTokenLp:    solana.NewWallet().PublicKey(),
	}
}

func TestInitializeAccounts_MetasOrder(t *testing.T) {
	accounts := testAccounts(t)
	metas := accounts.Metas()
	require.Len(t, metas, InitializeAccountCount)
	require.Equal(t, 21, InitializeAccountCount)

	tests := []struct {
		index    int
		key      solana.PublicKey
		writable bool
		signer   bool
	}{
		{IndexTokenProgram, solana.TokenProgramID, false, false},
		{IndexAssociatedTokenProgram, solana.SPLAssociatedTokenAccountProgramID, false, false},
		{IndexSystemProgram, solana.SystemProgramID, false, false},
		{IndexRent, solana.SysVarRentPubkey, false, false},
		{IndexAmm, accounts.Amm, true, false},
		{IndexAmmAuthority, accounts.AmmAuthority, false, false},
		{IndexOpenOrders, accounts.OpenOrders, true, false},
		{IndexLpMint, accounts.LpMint, true, false},
		{IndexCoinMint, accounts.CoinMint, false, false},
		{IndexPcMint, accounts.PcMint, false, false},
		{IndexCoinVault, accounts.CoinVault, true, false},
		{IndexPcVault, accounts.PcVault, true, false},
		{IndexTargetOrders, accounts.TargetOrders, true, false},
		{IndexAmmConfig, accounts.AmmConfig, false, false},
		{IndexFeeDestination, accounts.FeeDestination, true, false},
		{IndexMarketProgram, accounts.MarketProgram, false, false},
		{IndexMarket, accounts.Market, false, false},
		{IndexUserWallet, accounts.UserWallet, true, true},
		{IndexUserTokenCoin, accounts.UserTokenCoin, true, false},
		{IndexUserTokenPc, accounts.UserTokenPc, true, false},
		{IndexUserTokenLp, accounts.UserTokenLp, true, false},
	}

	for _, tt := range tests {
		meta := metas[tt.index]
		assert.Equal(t, tt.key, meta.PublicKey, "index %d", tt.index)
		assert.Equal(t, tt.writable, meta.IsWritable, "index %d writable", tt.index)
		assert.Equal(t, tt.signer, meta.IsSigner, "index %d signer", tt.index)
	}
}

func TestParseInitializeAccounts(t *testing.T) {
	accounts := testAccounts(t)

	parsed, err := ParseInitializeAccounts(accounts.Metas())
	require.NoError(t, err)
	assert.Equal(t, accounts, parsed)

	_, err = ParseInitializeAccounts(accounts.Metas()[:InitializeAccountCount-1])
	assert.Error(t, err)
}

func TestNewInitializeInstruction(t *testing.T) {
	accounts := testAccounts(t)
	ix := &InitializeInstruction{Nonce: 3, OpenTime: 100, PcAmount: 200, CoinAmount: 300}

	inst, err := NewInitializeInstruction(RaydiumV4ProgramID, accounts, ix)
	require.NoError(t, err)
	assert.Equal(t, RaydiumV4ProgramID, inst.ProgramID())

	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, ix.Encode(), data)
	assert.Len(t, inst.Accounts(), InitializeAccountCount)

	accounts.LpMint = solana.PublicKey{}
	_, err = NewInitializeInstruction(RaydiumV4ProgramID, accounts, ix)
	assert.ErrorContains(t, err, "lp mint")
}

func TestDerivePoolKeys_Deterministic(t *testing.T) {
	market := solana.NewWallet().PublicKey()

	a, err := DerivePoolKeys(RaydiumV4ProgramID, market)
	require.NoError(t, err)
	b, err := DerivePoolKeys(RaydiumV4ProgramID, market)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// The authority is shared by every pool of the program.
	other, err := DerivePoolKeys(RaydiumV4ProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, a.Authority, other.Authority)
	assert.NotEqual(t, a.Amm, other.Amm)

	recreated, err := solana.CreateProgramAddress(
		[][]byte{[]byte(AmmAuthoritySeed), {a.Authority.Nonce}}, RaydiumV4ProgramID)
	require.NoError(t, err)
	assert.Equal(t, a.Authority.Key, recreated)
}
