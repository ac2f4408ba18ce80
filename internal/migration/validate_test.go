// internal/migration/validate_test.go
package migration

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/curve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAccounts(t *testing.T) *SeedAccounts {
	t.Helper()
	accounts, err := DeriveSeedAccounts(testIDs, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.SolMint, amm.OpenBookProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	return accounts
}

func TestValidateSeedAccounts(t *testing.T) {
	accounts := validAccounts(t)

	caps, err := ValidateSeedAccounts(accounts, testIDs)
	require.NoError(t, err)

	assert.Equal(t, accounts.Pool, caps.PoolSigner.PublicKey())
	assert.NoError(t, caps.PoolSigner.Verify())
	assert.Equal(t, accounts.AmmAuthority, caps.AmmAuthority.Key)

	init := caps.Initialize
	assert.Equal(t, accounts.Pool, init.UserWallet)
	assert.Equal(t, accounts.QuoteMint, init.CoinMint)
	assert.Equal(t, accounts.BaseMint, init.PcMint)
	assert.Equal(t, accounts.QuoteVault, init.UserTokenCoin)
	assert.Equal(t, accounts.BaseVault, init.UserTokenPc)
	assert.Equal(t, accounts.LpVault, init.UserTokenLp)
}

func TestValidateSeedAccounts_RejectsWrongAccounts(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(a *SeedAccounts)
	}{
		{"pool", func(a *SeedAccounts) { a.Pool = solana.NewWallet().PublicKey() }},
		{"quote_vault", func(a *SeedAccounts) { a.QuoteVault = a.BaseVault }},
		{"fee_vault", func(a *SeedAccounts) { a.FeeVault = solana.NewWallet().PublicKey() }},
		{"quote_config", func(a *SeedAccounts) { a.QuoteConfig = solana.NewWallet().PublicKey() }},
		{"amm_program", func(a *SeedAccounts) { a.AmmProgram = solana.NewWallet().PublicKey() }},
		{"amm_authority", func(a *SeedAccounts) { a.AmmAuthority = solana.NewWallet().PublicKey() }},
		{"pool_coin_token_account", func(a *SeedAccounts) { a.AmmCoinVault = a.AmmPcVault }},
		{"token_program", func(a *SeedAccounts) { a.TokenProgram = solana.Token2022ProgramID }},
		{"quote_mint", func(a *SeedAccounts) { a.QuoteMint = a.BaseMint }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			accounts := validAccounts(t)
			tt.mutate(accounts)

			_, err := ValidateSeedAccounts(accounts, testIDs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAccount)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseSeedAccounts(t *testing.T) {
	accounts := validAccounts(t)
	metas := accounts.Metas()
	require.Len(t, metas, SeedAccountCount)

	parsed, err := ParseSeedAccounts(metas)
	require.NoError(t, err)
	assert.Equal(t, accounts, parsed)

	_, err = ParseSeedAccounts(metas[:SeedAccountCount-1])
	assert.ErrorIs(t, err, ErrInvalidAccount)

	metas[0].IsSigner = false
	_, err = ParseSeedAccounts(metas)
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeTradingNotEnded, Code(ErrTradingNotEnded))
	assert.Equal(t, CodeAlreadyMigrated, Code(&StageError{Stage: "x", Err: ErrAlreadyMigrated}))
	assert.Equal(t, CodeArithmeticUnderflow, Code(curve.ErrArithmeticUnderflow))
	assert.Equal(t, CodeInvalidAccount, Code(&ValidationError{Field: "pool"}))
	assert.Equal(t, CodeInvalidInstruction, Code(amm.ErrTruncatedInput))
	assert.Equal(t, CodeUnknown, Code(assert.AnError))
}

func TestFromCode(t *testing.T) {
	for _, err := range []error{
		ErrTradingNotEnded, ErrAlreadyMigrated, ErrArithmeticUnderflow, ErrArithmeticOverflow,
		ErrExternalCallFailed, ErrTransferFailed, ErrInvalidAccount, ErrInvalidFeeBps, ErrInvalidNonce,
	} {
		assert.ErrorIs(t, FromCode(Code(err)), err)
	}
	assert.Nil(t, FromCode(CodeUnknown))
	assert.Nil(t, FromCode(0))
}
