// internal/program/instruction.go
package program

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
)

// SeedSPLDiscriminator is the Anchor method discriminator of seed_spl.
var SeedSPLDiscriminator = methodDiscriminator("seed_spl")

// SeedSPLDataSize = 8 (discriminator) + 1 (nonce)
const SeedSPLDataSize = 9

// SeedSPLArgs are the arguments of seed_spl.
type SeedSPLArgs struct {
	Nonce uint8
}

// EncodeSeedSPL returns the instruction data for seed_spl.
func EncodeSeedSPL(nonce uint8) []byte {
	data := make([]byte, SeedSPLDataSize)
	copy(data, SeedSPLDiscriminator[:])
	data[8] = nonce
	return data
}

// DecodeSeedSPL parses seed_spl instruction data.
func DecodeSeedSPL(data []byte) (*SeedSPLArgs, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: missing discriminator", amm.ErrTruncatedInput)
	}
	if !bytes.Equal(data[:8], SeedSPLDiscriminator[:]) {
		return nil, fmt.Errorf("%w: discriminator %x", amm.ErrUnknownVariant, data[:8])
	}

	decoder := bin.NewBorshDecoder(data[8:])
	if decoder.Remaining() < 1 {
		return nil, fmt.Errorf("%w: nonce", amm.ErrTruncatedInput)
	}
	nonce, err := decoder.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &SeedSPLArgs{Nonce: nonce}, nil
}

// NewSeedSPLInstruction builds the seed_spl instruction for programID.
func NewSeedSPLInstruction(programID solana.PublicKey, accounts *migration.SeedAccounts, nonce uint8) solana.Instruction {
	return solana.NewInstruction(programID, accounts.Metas(), EncodeSeedSPL(nonce))
}

func methodDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("global:" + name))
	copy(d[:], sum[:8])
	return d
}
