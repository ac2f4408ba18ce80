// internal/amm/constants.go
package amm

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	RaydiumV4ProgramID = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OpenBookProgramID  = solana.MPK("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")

	// CreatePoolFeeDestination receives the AMM's pool creation fee on mainnet.
	CreatePoolFeeDestination = solana.MPK("7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5")
)

// PDA seeds used by the AMM program for accounts associated with a market.
const (
	AmmAssociatedSeed         = "amm_associated_seed"
	OpenOrdersAssociatedSeed  = "open_order_associated_seed"
	LpMintAssociatedSeed      = "lp_mint_associated_seed"
	CoinVaultAssociatedSeed   = "coin_vault_associated_seed"
	PcVaultAssociatedSeed     = "pc_vault_associated_seed"
	TargetAssociatedSeed      = "target_associated_seed"
	TempLpTokenAssociatedSeed = "temp_lp_token_associated_seed"
	AmmConfigSeed             = "amm_config_account_seed"
	AmmAuthoritySeed          = "amm authority"
)

// CreatePoolFeeLamports is what the AMM charges the creator on initialize2 (0.4 SOL).
const CreatePoolFeeLamports uint64 = 400_000_000
