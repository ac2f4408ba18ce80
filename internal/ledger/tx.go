// internal/ledger/tx.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
)

var (
	ErrMissingAuthority  = errors.New("owner authority missing")
	ErrMintMismatch      = errors.New("account mint mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrProgramNotFound   = errors.New("program not found")
)

// Program is a program that runs inside a transaction.
type Program interface {
	Execute(ctx context.Context, tx *Tx, data []byte, accounts solana.AccountMetaSlice, signer *authority.Signer) error
}

// Tx is one open transaction. Reads see the transaction's own writes first.
type Tx struct {
	runtime *Runtime
	now     time.Time
	changes *storage.ChangeSet
}

var _ migration.TokenTransferer = (*Tx)(nil)

// Now is the clock value fixed at transaction start.
func (tx *Tx) Now() time.Time {
	return tx.now
}

func (tx *Tx) Pool(ctx context.Context, key solana.PublicKey) (*pool.Pool, error) {
	if p, ok := tx.changes.Pools[key]; ok {
		return p.Clone(), nil
	}
	p, err := tx.runtime.store.GetPool(ctx, key)
	if err := tx.observe(storage.KindPool, key, p, err); err != nil {
		return nil, err
	}
	return p, nil
}

func (tx *Tx) SetPool(key solana.PublicKey, p *pool.Pool) {
	tx.changes.PutPool(key, p)
}

func (tx *Tx) QuoteConfig(ctx context.Context, key solana.PublicKey) (*pool.QuoteConfig, error) {
	if c, ok := tx.changes.QuoteConfigs[key]; ok {
		return c.Clone(), nil
	}
	c, err := tx.runtime.store.GetQuoteConfig(ctx, key)
	if err := tx.observe(storage.KindQuoteConfig, key, c, err); err != nil {
		return nil, err
	}
	return c, nil
}

func (tx *Tx) TokenAccount(ctx context.Context, key solana.PublicKey) (*storage.TokenAccount, error) {
	if a, ok := tx.changes.TokenAccounts[key]; ok {
		return a.Clone(), nil
	}
	a, err := tx.runtime.store.GetTokenAccount(ctx, key)
	if err := tx.observe(storage.KindTokenAccount, key, a, err); err != nil {
		return nil, err
	}
	return a, nil
}

func (tx *Tx) SetTokenAccount(key solana.PublicKey, a *storage.TokenAccount) {
	tx.changes.PutTokenAccount(key, a)
}

func (tx *Tx) AmmPool(ctx context.Context, key solana.PublicKey) (*storage.AmmPool, error) {
	if a, ok := tx.changes.AmmPools[key]; ok {
		return a.Clone(), nil
	}
	a, err := tx.runtime.store.GetAmmPool(ctx, key)
	if err := tx.observe(storage.KindAmmPool, key, a, err); err != nil {
		return nil, err
	}
	return a, nil
}

func (tx *Tx) SetAmmPool(key solana.PublicKey, a *storage.AmmPool) {
	tx.changes.PutAmmPool(key, a)
}

// observe adds a store read to the transaction's read set. Absent records
// are recorded too, so a concurrent create is detected at commit.
func (tx *Tx) observe(kind storage.Kind, key solana.PublicKey, record interface{}, err error) error {
	ref := storage.Ref{Kind: kind, Key: key}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if oerr := tx.changes.Observe(ref, nil); oerr != nil {
			return oerr
		}
		return err
	case err != nil:
		return err
	}
	return tx.changes.Observe(ref, record)
}

// TransferChecked moves tokens between two accounts of the same mint. The
// source must be owned by the signer.
func (tx *Tx) TransferChecked(ctx context.Context, params migration.TransferParams) error {
	if params.Authority == nil {
		return ErrMissingAuthority
	}
	if err := params.Authority.Verify(); err != nil {
		return fmt.Errorf("invalid signer seeds: %w", err)
	}
	return tx.transfer(ctx, params.Mint, params.From, params.To, params.Amount, params.Authority.PublicKey())
}

// transfer moves amount from one token account to another on behalf of owner.
func (tx *Tx) transfer(ctx context.Context, mint, from, to solana.PublicKey, amount uint64, owner solana.PublicKey) error {
	src, err := tx.TokenAccount(ctx, from)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := tx.TokenAccount(ctx, to)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if !src.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s is owned by %s", ErrMissingAuthority, from, src.Owner)
	}
	if !src.Mint.Equals(mint) || !dst.Mint.Equals(mint) {
		return fmt.Errorf("%w: expected %s", ErrMintMismatch, mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientFunds, from, src.Amount, amount)
	}
	if dst.Amount > ^uint64(0)-amount {
		return fmt.Errorf("%w: destination %s", migration.ErrArithmeticOverflow, to)
	}

	if from.Equals(to) {
		return nil
	}

	src.Amount -= amount
	dst.Amount += amount
	tx.SetTokenAccount(from, src)
	tx.SetTokenAccount(to, dst)
	return nil
}

// mintTo credits amount of mint to account, creating it for owner if absent.
func (tx *Tx) mintTo(ctx context.Context, mint, account, owner solana.PublicKey, amount uint64) error {
	dst, err := tx.TokenAccount(ctx, account)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		dst = &storage.TokenAccount{Mint: mint, Owner: owner}
	case err != nil:
		return err
	case !dst.Mint.Equals(mint):
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, account, dst.Mint)
	}
	if dst.Amount > ^uint64(0)-amount {
		return fmt.Errorf("%w: mint to %s", migration.ErrArithmeticOverflow, account)
	}
	dst.Amount += amount
	tx.SetTokenAccount(account, dst)
	return nil
}

// Program returns a handle that invokes the program registered at id within
// this transaction.
func (tx *Tx) Program(id solana.PublicKey) amm.Program {
	return &invocation{tx: tx, id: id}
}

type invocation struct {
	tx *Tx
	id solana.PublicKey
}

func (i *invocation) Execute(ctx context.Context, data []byte, accounts solana.AccountMetaSlice, signer *authority.Signer) error {
	p, ok := i.tx.runtime.programs[i.id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, i.id)
	}
	return p.Execute(ctx, i.tx, data, accounts, signer)
}
