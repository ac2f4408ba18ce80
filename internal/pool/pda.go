// internal/pool/pda.go
package pool

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
)

// Seeds of the accounts owned by the migrator program.
const (
	GlobalSeed       = "global"
	PoolSeed         = "pool"
	PoolVaultSeed    = "pool_vault"
	QuoteConfigSeed  = "quote_config"
	FeeCollectorSeed = "fee_collector"
)

// Signer derives the pool's signing authority. The pool address itself is the
// authority of both vaults and the user wallet of the AMM call.
func Signer(programID, baseMint solana.PublicKey) (*authority.Signer, error) {
	s, err := authority.Derive(programID, []byte(PoolSeed), baseMint.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to derive pool: %w", err)
	}
	return s, nil
}

// VaultAddress derives the pool-owned token account for mint.
func VaultAddress(programID, poolKey, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := authority.FindAddress(programID, []byte(PoolVaultSeed), poolKey.Bytes(), mint.Bytes())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool vault: %w", err)
	}
	return addr.Key, nil
}

// QuoteConfigAddress derives the config account of a quote mint.
func QuoteConfigAddress(programID, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := authority.FindAddress(programID, []byte(QuoteConfigSeed), quoteMint.Bytes())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive quote config: %w", err)
	}
	return addr.Key, nil
}

// GlobalAddress derives the program's global state account.
func GlobalAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, err := authority.FindAddress(programID, []byte(GlobalSeed))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global: %w", err)
	}
	return addr.Key, nil
}

// FeeCollectorAddress derives the account that owns collected seeding fees.
func FeeCollectorAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, err := authority.FindAddress(programID, []byte(FeeCollectorSeed))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive fee collector: %w", err)
	}
	return addr.Key, nil
}

// FeeVaultAddress is the fee collector's associated token account for quoteMint.
func FeeVaultAddress(programID, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	collector, err := FeeCollectorAddress(programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(collector, quoteMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive fee vault: %w", err)
	}
	return ata, nil
}

// Addresses groups every program-side account of one pool.
type Addresses struct {
	Global       solana.PublicKey
	Pool         solana.PublicKey
	BaseVault    solana.PublicKey
	QuoteVault   solana.PublicKey
	QuoteConfig  solana.PublicKey
	FeeCollector solana.PublicKey
	FeeVault     solana.PublicKey
}

// DeriveAddresses derives the program-side accounts of the pool for baseMint/quoteMint.
func DeriveAddresses(programID, baseMint, quoteMint solana.PublicKey) (*Addresses, error) {
	signer, err := Signer(programID, baseMint)
	if err != nil {
		return nil, err
	}

	out := &Addresses{Pool: signer.PublicKey()}

	if out.Global, err = GlobalAddress(programID); err != nil {
		return nil, err
	}
	if out.BaseVault, err = VaultAddress(programID, out.Pool, baseMint); err != nil {
		return nil, err
	}
	if out.QuoteVault, err = VaultAddress(programID, out.Pool, quoteMint); err != nil {
		return nil, err
	}
	if out.QuoteConfig, err = QuoteConfigAddress(programID, quoteMint); err != nil {
		return nil, err
	}
	if out.FeeCollector, err = FeeCollectorAddress(programID); err != nil {
		return nil, err
	}
	if out.FeeVault, err = FeeVaultAddress(programID, quoteMint); err != nil {
		return nil, err
	}
	return out, nil
}
