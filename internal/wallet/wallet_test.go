package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(base58.Encode(pk))
	require.NoError(t, err)
	assert.Equal(t, pk.PublicKey(), w.PublicKey)
	assert.Equal(t, pk.PublicKey().String(), w.String())
}

func TestNewWallet_Invalid(t *testing.T) {
	_, err := NewWallet("0OIl")
	assert.Error(t, err)

	_, err = NewWallet(base58.Encode([]byte{1, 2, 3}))
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestLoad_KeygenFile(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ints := make([]int, len(pk))
	for i, b := range pk {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, pk.PublicKey(), w.PublicKey)

	_, err = Load("  ")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestSignTransaction(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(base58.Encode(pk))
	require.NoError(t, err)

	ix := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.NewAccountMeta(w.PublicKey, true, true)},
		[]byte("seed"),
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}
