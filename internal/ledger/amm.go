// internal/ledger/amm.go
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
	"github.com/rovshanmuradov/pool-migrator/internal/curve"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
	"go.uber.org/zap"
)

// Codes carried by the rejections the simulator reports.
const (
	AmmCodeAlreadyInUse       uint32 = 0
	AmmCodeInvalidProgramAddr uint32 = 1
	AmmCodeInvalidInput       uint32 = 19
	AmmCodeInsufficientFunds  uint32 = 40
	AmmCodeInvalidSigner      uint32 = 48
	AmmCodeInvalidOwner       uint32 = 12
	AmmCodeRejected           uint32 = 99
)

// AMMSimulator executes initialize2 against ledger state: it checks the
// account list the way the AMM does, moves both deposits into AMM vaults and
// mints LP tokens to the user.
type AMMSimulator struct {
	programID solana.PublicKey
	logger    *zap.Logger
	// Reject, when set, is consulted after decoding; a non-nil result fails the call.
	Reject func(ix *amm.InitializeInstruction) error
}

var _ Program = (*AMMSimulator)(nil)

// NewAMMSimulator creates a simulator for programID.
func NewAMMSimulator(programID solana.PublicKey, logger *zap.Logger) *AMMSimulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMMSimulator{programID: programID, logger: logger.Named("amm")}
}

func reject(code uint32, format string, args ...interface{}) error {
	return &amm.ExternalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Execute runs one instruction.
func (s *AMMSimulator) Execute(ctx context.Context, tx *Tx, data []byte, metas solana.AccountMetaSlice, signer *authority.Signer) error {
	ix, err := amm.DecodeInitialize(data)
	if err != nil {
		return &amm.ExternalError{Code: AmmCodeInvalidInput, Message: "invalid instruction data", Err: err}
	}

	if len(metas) != amm.InitializeAccountCount {
		return reject(AmmCodeInvalidInput, "expected %d accounts, got %d", amm.InitializeAccountCount, len(metas))
	}
	accounts, err := amm.ParseInitializeAccounts(metas)
	if err != nil {
		return &amm.ExternalError{Code: AmmCodeInvalidInput, Message: "invalid accounts", Err: err}
	}

	if err := s.checkAccounts(ix, accounts, metas, signer); err != nil {
		return err
	}

	if s.Reject != nil {
		if err := s.Reject(ix); err != nil {
			return &amm.ExternalError{Code: AmmCodeRejected, Message: "initialize rejected", Err: err}
		}
	}

	if _, err := tx.AmmPool(ctx, accounts.Amm); err == nil {
		return reject(AmmCodeAlreadyInUse, "amm %s already initialized", accounts.Amm)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if ix.CoinAmount == 0 || ix.PcAmount == 0 {
		return reject(AmmCodeInvalidInput, "initial amounts must be positive")
	}

	liquidity, err := curve.BurnableLiquidity(ix.PcAmount, ix.CoinAmount)
	if err != nil {
		return &amm.ExternalError{Code: AmmCodeInvalidInput, Message: "initial liquidity too small", Err: err}
	}

	// Vaults are created by the AMM, owned by its authority.
	for _, vault := range []struct {
		key, mint solana.PublicKey
	}{
		{accounts.CoinVault, accounts.CoinMint},
		{accounts.PcVault, accounts.PcMint},
	} {
		if err := tx.mintTo(ctx, vault.mint, vault.key, accounts.AmmAuthority, 0); err != nil {
			return &amm.ExternalError{Code: AmmCodeInvalidOwner, Message: "vault setup failed", Err: err}
		}
	}

	wallet := accounts.UserWallet
	if err := tx.transfer(ctx, accounts.CoinMint, accounts.UserTokenCoin, accounts.CoinVault, ix.CoinAmount, wallet); err != nil {
		return s.transferError("coin", err)
	}
	if err := tx.transfer(ctx, accounts.PcMint, accounts.UserTokenPc, accounts.PcVault, ix.PcAmount, wallet); err != nil {
		return s.transferError("pc", err)
	}
	if err := tx.mintTo(ctx, accounts.LpMint, accounts.UserTokenLp, wallet, liquidity); err != nil {
		return &amm.ExternalError{Code: AmmCodeInvalidOwner, Message: "lp mint failed", Err: err}
	}

	tx.SetAmmPool(accounts.Amm, &storage.AmmPool{
		Nonce:     ix.Nonce,
		OpenTime:  ix.OpenTime,
		CoinMint:  accounts.CoinMint,
		PcMint:    accounts.PcMint,
		CoinVault: accounts.CoinVault,
		PcVault:   accounts.PcVault,
		LpMint:    accounts.LpMint,
		LpSupply:  liquidity + curve.LockedLiquidity,
		LpLocked:  curve.LockedLiquidity,
		Market:    accounts.Market,
		CreatedBy: wallet,
	})

	s.logger.Debug("Pool initialized",
		zap.String("amm", accounts.Amm.String()),
		zap.Uint64("coin_amount", ix.CoinAmount),
		zap.Uint64("pc_amount", ix.PcAmount),
		zap.Uint64("lp_minted", liquidity))

	return nil
}

func (s *AMMSimulator) checkAccounts(ix *amm.InitializeInstruction, accounts *amm.InitializeAccounts, metas solana.AccountMetaSlice, signer *authority.Signer) error {
	for _, fixed := range []struct {
		index int
		want  solana.PublicKey
	}{
		{amm.IndexTokenProgram, solana.TokenProgramID},
		{amm.IndexAssociatedTokenProgram, solana.SPLAssociatedTokenAccountProgramID},
		{amm.IndexSystemProgram, solana.SystemProgramID},
		{amm.IndexRent, solana.SysVarRentPubkey},
	} {
		if !metas[fixed.index].PublicKey.Equals(fixed.want) {
			return reject(AmmCodeInvalidInput, "account %d must be %s", fixed.index, fixed.want)
		}
	}

	wallet := metas[amm.IndexUserWallet]
	if !wallet.IsSigner || !wallet.IsWritable {
		return reject(AmmCodeInvalidSigner, "user wallet must be a writable signer")
	}
	if signer == nil || !signer.Authorizes(accounts.UserWallet) {
		return reject(AmmCodeInvalidSigner, "user wallet %s did not sign", accounts.UserWallet)
	}
	if err := signer.Verify(); err != nil {
		return &amm.ExternalError{Code: AmmCodeInvalidSigner, Message: "bad signer seeds", Err: err}
	}

	keys, err := amm.DerivePoolKeys(s.programID, accounts.Market)
	if err != nil {
		return err
	}
	if ix.Nonce != keys.Authority.Nonce {
		return reject(AmmCodeInvalidProgramAddr, "nonce %d does not derive the amm authority", ix.Nonce)
	}
	for _, derived := range []struct {
		name      string
		got, want solana.PublicKey
	}{
		{"amm", accounts.Amm, keys.Amm},
		{"amm authority", accounts.AmmAuthority, keys.Authority.Key},
		{"open orders", accounts.OpenOrders, keys.OpenOrders},
		{"lp mint", accounts.LpMint, keys.LpMint},
		{"coin vault", accounts.CoinVault, keys.CoinVault},
		{"pc vault", accounts.PcVault, keys.PcVault},
		{"target orders", accounts.TargetOrders, keys.TargetOrders},
		{"amm config", accounts.AmmConfig, keys.Config},
	} {
		if !derived.got.Equals(derived.want) {
			return reject(AmmCodeInvalidProgramAddr, "%s: expected %s, got %s", derived.name, derived.want, derived.got)
		}
	}

	if accounts.CoinMint.Equals(accounts.PcMint) {
		return reject(AmmCodeInvalidInput, "coin and pc mints must differ")
	}
	return nil
}

func (s *AMMSimulator) transferError(side string, err error) error {
	code := AmmCodeInvalidOwner
	if errors.Is(err, ErrInsufficientFunds) {
		code = AmmCodeInsufficientFunds
	}
	return &amm.ExternalError{Code: code, Message: side + " deposit failed", Err: err}
}
