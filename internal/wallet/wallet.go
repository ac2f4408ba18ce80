// internal/wallet/wallet.go
package wallet

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrEmptyKey is returned when no key material is configured.
var ErrEmptyKey = errors.New("wallet key is empty")

// Wallet holds the keypair that pays for and signs migration transactions.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet creates a wallet from a base58-encoded 64 byte private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return fromPrivateKey(solana.PrivateKey(privateKeyBytes)), nil
}

// Load accepts either a base58 private key or the path of a solana-keygen
// JSON file.
func Load(keyOrPath string) (*Wallet, error) {
	keyOrPath = strings.TrimSpace(keyOrPath)
	if keyOrPath == "" {
		return nil, ErrEmptyKey
	}
	if _, err := os.Stat(keyOrPath); err == nil {
		pk, err := solana.PrivateKeyFromSolanaKeygenFile(keyOrPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read keygen file %s: %w", keyOrPath, err)
		}
		return fromPrivateKey(pk), nil
	}
	return NewWallet(keyOrPath)
}

func fromPrivateKey(pk solana.PrivateKey) *Wallet {
	return &Wallet{PrivateKey: pk, PublicKey: pk.PublicKey()}
}

// SignTransaction signs every slot of tx that belongs to this wallet.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// ATA returns the wallet's associated token account for mint.
func (w *Wallet) ATA(mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	return ata, err
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
