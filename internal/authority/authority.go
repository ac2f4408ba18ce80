// internal/authority/authority.go
// Package authority models program-derived signing identities.
//
// A Signer is the capability "may authorize actions on behalf of P": it is
// produced only by deriving the address from its seeds, never from a raw key.
package authority

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrSeedsMismatch is returned when seeds do not derive the expected address.
	ErrSeedsMismatch = errors.New("seeds do not derive the expected address")
)

// Address is a derived address together with the bump (nonce) that makes it
// fall off the ed25519 curve.
type Address struct {
	Key   solana.PublicKey
	Nonce uint8
}

// Signer represents the right to sign on behalf of a program-derived address.
type Signer struct {
	address   solana.PublicKey
	programID solana.PublicKey
	seeds     [][]byte
	bump      uint8
}

// Derive finds the canonical program address for seeds and returns a signer
// bound to it.
func Derive(programID solana.PublicKey, seeds ...[]byte) (*Signer, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive program address: %w", err)
	}

	owned := make([][]byte, len(seeds))
	for i, s := range seeds {
		owned[i] = append([]byte(nil), s...)
	}

	return &Signer{
		address:   addr,
		programID: programID,
		seeds:     owned,
		bump:      bump,
	}, nil
}

// FindAddress derives an address without granting signing rights.
func FindAddress(programID solana.PublicKey, seeds ...[]byte) (Address, error) {
	key, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return Address{}, fmt.Errorf("failed to derive program address: %w", err)
	}
	return Address{Key: key, Nonce: bump}, nil
}

// PublicKey returns the derived address.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.address
}

// SignerSeeds returns the full seed list, bump included, as the runtime
// expects it for a signed invocation.
func (s *Signer) SignerSeeds() [][]byte {
	out := make([][]byte, 0, len(s.seeds)+1)
	for _, seed := range s.seeds {
		out = append(out, append([]byte(nil), seed...))
	}
	return append(out, []byte{s.bump})
}

// Verify reports whether the signer seeds still produce the signer address.
func (s *Signer) Verify() error {
	addr, err := solana.CreateProgramAddress(s.SignerSeeds(), s.programID)
	if err != nil {
		return fmt.Errorf("failed to recreate program address: %w", err)
	}
	if !addr.Equals(s.address) {
		return ErrSeedsMismatch
	}
	return nil
}

// Authorizes reports whether the signer may act for key.
func (s *Signer) Authorizes(key solana.PublicKey) bool {
	return s != nil && s.address.Equals(key)
}
