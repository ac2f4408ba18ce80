// internal/client/client.go
// Package client builds, signs and submits seed_spl transactions against a
// live cluster.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pool-migrator/internal/metrics"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/wallet"
	"go.uber.org/zap"
)

// RPC is the subset of *rpc.Client the submitter uses.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Options tune how transactions are priced and retried.
type Options struct {
	ComputeUnits   uint32
	PriorityFeeSol string
	SkipPreflight  bool
	MaxElapsed     time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// DefaultOptions mirrors the limits used for swaps.
func DefaultOptions() Options {
	return Options{
		ComputeUnits:   400_000,
		MaxElapsed:     15 * time.Second,
		ConfirmTimeout: 30 * time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// Request identifies the pool to migrate and the market it lands on.
type Request struct {
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	MarketProgram solana.PublicKey
	Market        solana.PublicKey
}

// Submitter sends seed_spl transactions signed by a wallet.
type Submitter struct {
	rpc     RPC
	wallet  *wallet.Wallet
	ids     migration.ProgramIDs
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Collector
	backoff func() backoff.BackOff
}

// New creates a submitter.
func New(client RPC, w *wallet.Wallet, ids migration.ProgramIDs, opts Options, logger *zap.Logger) *Submitter {
	return &Submitter{
		rpc:    client,
		wallet: w,
		ids:    ids,
		opts:   opts,
		logger: logger.Named("submitter"),
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// SetMetrics makes the submitter count attempts and outcomes in m.
func (s *Submitter) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// NewFromURL dials rpcURL with the stock solana-go client.
func NewFromURL(rpcURL string, w *wallet.Wallet, ids migration.ProgramIDs, opts Options, logger *zap.Logger) (*Submitter, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is empty")
	}
	return New(rpc.New(rpcURL), w, ids, opts, logger), nil
}
