// internal/curve/curve.go
// Package curve holds the fixed-point arithmetic applied to pool reserves
// when they leave the bonding curve.
package curve

import (
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
)

const (
	// BasisPointsDenominator is 100% expressed in basis points.
	BasisPointsDenominator = 10_000

	// LockedLiquidity is the amount of LP supply the AMM keeps locked forever.
	LockedLiquidity uint64 = 100
)

var (
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
)

var (
	bpsDenominator = big.NewInt(BasisPointsDenominator)
	maxUint128     = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// SeedingFee returns floor(reserve * feeBps / 10000).
//
// The product is formed in arbitrary precision so reserves anywhere in the
// u128 range are safe. For feeBps <= 10000 the result never exceeds reserve;
// a larger rate on a reserve near 2^128 fails with ErrArithmeticOverflow.
func SeedingFee(reserve bin.Uint128, feeBps uint16) (bin.Uint128, error) {
	fee := new(big.Int).Mul(reserve.BigInt(), big.NewInt(int64(feeBps)))
	fee.Quo(fee, bpsDenominator)

	if fee.Cmp(maxUint128) > 0 {
		return bin.Uint128{}, fmt.Errorf("%w: fee of %s at %d bps exceeds 128 bits",
			ErrArithmeticOverflow, reserve.BigInt(), feeBps)
	}
	return fromBig(fee), nil
}

// SeedingFeeU64 applies SeedingFee to a 64-bit reserve and narrows the result.
func SeedingFeeU64(reserve uint64, feeBps uint16) (uint64, error) {
	fee, err := SeedingFee(U128(reserve), feeBps)
	if err != nil {
		return 0, err
	}
	return ToUint64(fee)
}

// NetOfFee returns reserve - fee, failing instead of wrapping.
func NetOfFee(reserve, fee uint64) (uint64, error) {
	if fee > reserve {
		return 0, fmt.Errorf("%w: fee %d exceeds reserve %d", ErrArithmeticUnderflow, fee, reserve)
	}
	return reserve - fee, nil
}

// InitialLiquidity is the LP supply minted for a fresh pool: isqrt(a * b).
func InitialLiquidity(a, b uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	// sqrt of a product of two u64 values always fits in u64.
	return product.Sqrt(product).Uint64()
}

// BurnableLiquidity is the LP supply left to the depositor once the locked
// amount is withheld.
func BurnableLiquidity(a, b uint64) (uint64, error) {
	liquidity := InitialLiquidity(a, b)
	if liquidity < LockedLiquidity {
		return 0, fmt.Errorf("%w: liquidity %d below locked amount %d",
			ErrArithmeticUnderflow, liquidity, LockedLiquidity)
	}
	return liquidity - LockedLiquidity, nil
}

// U128 widens v.
func U128(v uint64) bin.Uint128 {
	return bin.Uint128{Lo: v, Endianness: bin.LE}
}

// ToUint64 narrows v, failing when the high word is set.
func ToUint64(v bin.Uint128) (uint64, error) {
	if v.Hi != 0 {
		return 0, fmt.Errorf("%w: %s does not fit in u64", ErrArithmeticOverflow, v.BigInt())
	}
	return v.Lo, nil
}

func fromBig(v *big.Int) bin.Uint128 {
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(v, 64)
	return bin.Uint128{Lo: lo.Uint64(), Hi: hi.Uint64(), Endianness: bin.LE}
}
