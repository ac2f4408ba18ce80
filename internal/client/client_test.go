package client

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/metrics"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/pool"
	"github.com/rovshanmuradov/pool-migrator/internal/program"
	"github.com/rovshanmuradov/pool-migrator/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRPC struct {
	mock.Mock
}

func (m *MockRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	args := m.Called(ctx, commitment)
	res, _ := args.Get(0).(*rpc.GetLatestBlockhashResult)
	return res, args.Error(1)
}

func (m *MockRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, searchTransactionHistory, signatures)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *MockRPC) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	args := m.Called(ctx, account, commitment)
	res, _ := args.Get(0).(*rpc.GetTokenAccountBalanceResult)
	return res, args.Error(1)
}

func (m *MockRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, account, opts)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

type fixture struct {
	rpc       *MockRPC
	submitter *Submitter
	ids       migration.ProgramIDs
	req       Request
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := &wallet.Wallet{PrivateKey: pk, PublicKey: pk.PublicKey()}

	ids := migration.ProgramIDs{Migrator: solana.NewWallet().PublicKey(), AMM: amm.RaydiumV4ProgramID}
	m := new(MockRPC)
	s := New(m, w, ids, opts, zap.NewNop())
	s.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	return &fixture{
		rpc:       m,
		submitter: s,
		ids:       ids,
		req: Request{
			BaseMint:      solana.NewWallet().PublicKey(),
			QuoteMint:     solana.SolMint,
			MarketProgram: amm.OpenBookProgramID,
			Market:        solana.NewWallet().PublicKey(),
		},
	}
}

func fastOptions() Options {
	return Options{
		ComputeUnits:   300_000,
		PriorityFeeSol: "0.000001",
		MaxElapsed:     time.Second,
		ConfirmTimeout: time.Second,
		PollInterval:   time.Millisecond,
	}
}

func (f *fixture) expectBlockhash() {
	f.rpc.On("GetLatestBlockhash", mock.Anything, rpc.CommitmentFinalized).
		Return(&rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{7}}}, nil)
}

func (f *fixture) expectStatus(status *rpc.SignatureStatusesResult) {
	f.rpc.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).
		Return(&rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil)
}

func TestPrepare_InstructionList(t *testing.T) {
	f := newFixture(t, fastOptions())

	prepared, err := f.submitter.Prepare(f.req)
	require.NoError(t, err)
	require.Len(t, prepared.Instructions, 3)

	for _, ix := range prepared.Instructions[:2] {
		assert.Equal(t, computebudget.ProgramID, ix.ProgramID())
	}
	limit, err := prepared.Instructions[0].Data()
	require.NoError(t, err)
	assert.Equal(t, uint32(300_000), binary.LittleEndian.Uint32(limit[1:5]))
	price, err := prepared.Instructions[1].Data()
	require.NoError(t, err)
	// 0.000001 SOL is 10^6 micro-lamports.
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(price[1:9]))

	seed := prepared.Instructions[2]
	assert.Equal(t, f.ids.Migrator, seed.ProgramID())
	assert.Len(t, seed.Accounts(), migration.SeedAccountCount)
	data, err := seed.Data()
	require.NoError(t, err)
	args, err := program.DecodeSeedSPL(data)
	require.NoError(t, err)
	assert.Equal(t, prepared.Nonce, args.Nonce)

	keys, err := amm.DerivePoolKeys(f.ids.AMM, f.req.Market)
	require.NoError(t, err)
	assert.Equal(t, keys.Authority.Nonce, prepared.Nonce)
	assert.Equal(t, f.submitter.wallet.PublicKey, prepared.Accounts.User)

	_, err = migration.ValidateSeedAccounts(prepared.Accounts, f.ids)
	assert.NoError(t, err)
}

func TestPriorityInstructions(t *testing.T) {
	tests := []struct {
		name    string
		units   uint32
		fee     string
		want    int
		wantErr bool
	}{
		{name: "none", want: 0},
		{name: "limit only", units: 200_000, want: 1},
		{name: "price only", fee: "0.00001", want: 1},
		{name: "sub-lamport price", fee: "0.0000000001", want: 1},
		{name: "below one micro-lamport", fee: "0.0000000000001", want: 0},
		{name: "both", units: 1, fee: "1", want: 2},
		{name: "garbage", fee: "abc", wantErr: true},
		{name: "negative", fee: "-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := priorityInstructions(tt.units, tt.fee)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestSubmit_RetriesStaleBlockhash(t *testing.T) {
	f := newFixture(t, fastOptions())
	m := metrics.NewCollector()
	f.submitter.SetMetrics(m)
	f.expectBlockhash()
	sig := solana.Signature{9}
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("Transaction simulation failed: BlockhashNotFound")).Once()
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(sig, nil).Once()
	f.expectStatus(&rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed})

	got, err := f.submitter.Submit(context.Background(), f.req)
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	f.rpc.AssertNumberOfCalls(t, "SendTransactionWithOpts", 2)
	f.rpc.AssertNumberOfCalls(t, "GetLatestBlockhash", 2)

	tx := f.rpc.Calls[1].Arguments.Get(1).(*solana.Transaction)
	assert.NoError(t, tx.VerifySignatures())
	assert.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)

	n, err := testutil.GatherAndCount(m.Registry(), "pool_migrator_submit_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSubmit_ProgramErrorIsPermanent(t *testing.T) {
	f := newFixture(t, fastOptions())
	f.expectBlockhash()
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, &jsonrpc.RPCError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1771",
			Data: map[string]interface{}{
				"logs": []interface{}{
					"Program log: Instruction: SeedSpl",
					"Program log: AnchorError occurred. Error Code: AlreadyMigrated. Error Number: 6001. Error Message: pool already migrated.",
				},
			},
		})

	_, err := f.submitter.Submit(context.Background(), f.req)
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrAlreadyMigrated)

	var perr *ProgramError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, migration.CodeAlreadyMigrated, perr.Code)
	assert.Equal(t, "AlreadyMigrated", perr.Name)
	f.rpc.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func TestSubmit_FailedStatus(t *testing.T) {
	f := newFixture(t, fastOptions())
	f.expectBlockhash()
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{1}, nil)
	f.expectStatus(&rpc.SignatureStatusesResult{
		Err: map[string]interface{}{
			"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6000)}},
		},
	})

	_, err := f.submitter.Submit(context.Background(), f.req)
	assert.ErrorIs(t, err, migration.ErrTradingNotEnded)
	f.rpc.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func alreadyMigratedError() error {
	return &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1771",
	}
}

func statusResult(status *rpc.SignatureStatusesResult) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}
}

func TestSubmit_ResendRefusedAfterEarlierLanding(t *testing.T) {
	opts := fastOptions()
	opts.ConfirmTimeout = 20 * time.Millisecond
	f := newFixture(t, opts)
	f.expectBlockhash()

	first := solana.Signature{1}
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(first, nil).Once()
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, alreadyMigratedError()).Once()
	// Confirmation polling never sees the first transaction.
	f.rpc.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).Return(statusResult(nil), nil)
	// The history lookup before the resend misses it; the one after the refusal finds it.
	f.rpc.On("GetSignatureStatuses", mock.Anything, true, mock.Anything).Return(statusResult(nil), nil).Once()
	f.rpc.On("GetSignatureStatuses", mock.Anything, true, mock.Anything).
		Return(statusResult(&rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized}), nil).Once()

	got, err := f.submitter.Submit(context.Background(), f.req)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	f.rpc.AssertNumberOfCalls(t, "SendTransactionWithOpts", 2)
}

func TestSubmit_ResendRefusedBeforeStatusVisible(t *testing.T) {
	opts := fastOptions()
	opts.ConfirmTimeout = 20 * time.Millisecond
	f := newFixture(t, opts)
	f.expectBlockhash()

	first := solana.Signature{1}
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(first, nil).Once()
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, alreadyMigratedError()).Once()
	f.rpc.On("GetSignatureStatuses", mock.Anything, mock.Anything, mock.Anything).Return(statusResult(nil), nil)

	got, err := f.submitter.Submit(context.Background(), f.req)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestSubmit_EarlierAttemptLandsBeforeResend(t *testing.T) {
	opts := fastOptions()
	opts.ConfirmTimeout = 20 * time.Millisecond
	f := newFixture(t, opts)
	f.expectBlockhash()

	first := solana.Signature{1}
	f.rpc.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(first, nil).Once()
	f.rpc.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).Return(statusResult(nil), nil)
	f.rpc.On("GetSignatureStatuses", mock.Anything, true, mock.Anything).
		Return(statusResult(&rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}), nil)

	got, err := f.submitter.Submit(context.Background(), f.req)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	f.rpc.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func TestClassify(t *testing.T) {
	var permanent *backoff.PermanentError

	assert.Nil(t, classify(nil))

	err := classify(errors.New("blockhash not found"))
	assert.False(t, errors.As(err, &permanent))

	err = classify(errors.New("429 Too Many Requests"))
	assert.False(t, errors.As(err, &permanent))

	err = classify(errors.New("invalid transaction: account in use"))
	assert.True(t, errors.As(err, &permanent))

	err = classify(errors.New("custom program error: 0x1770"))
	assert.True(t, errors.As(err, &permanent))
	assert.ErrorIs(t, err, migration.ErrTradingNotEnded)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, fastOptions())
	addrs, err := pool.DeriveAddresses(f.ids.Migrator, f.req.BaseMint, f.req.QuoteMint)
	require.NoError(t, err)

	poolData, err := pool.MarshalPool(&pool.Pool{
		BaseMint: f.req.BaseMint, QuoteMint: f.req.QuoteMint,
		BaseReserve: 500_000_000, QuoteReserve: 1_000_000_000, IsFilled: true,
	})
	require.NoError(t, err)
	cfgData, err := pool.MarshalQuoteConfig(&pool.QuoteConfig{QuoteMint: f.req.QuoteMint, SeedingFeeBps: 100, Decimals: 9})
	require.NoError(t, err)

	account := func(data []byte) *rpc.GetAccountInfoResult {
		return &rpc.GetAccountInfoResult{Value: &rpc.Account{
			Owner: f.ids.Migrator,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		}}
	}
	f.rpc.On("GetAccountInfoWithOpts", mock.Anything, addrs.Pool, mock.Anything).Return(account(poolData), nil)
	f.rpc.On("GetAccountInfoWithOpts", mock.Anything, addrs.QuoteConfig, mock.Anything).Return(account(cfgData), nil)
	f.rpc.On("GetTokenAccountBalance", mock.Anything, addrs.BaseVault, rpc.CommitmentConfirmed).
		Return(&rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: "500000000"}}, nil)
	f.rpc.On("GetTokenAccountBalance", mock.Anything, addrs.QuoteVault, rpc.CommitmentConfirmed).
		Return(&rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: "1000000000"}}, nil)

	preview, err := f.submitter.Preview(context.Background(), f.req)
	require.NoError(t, err)
	assert.Equal(t, migration.Reserves{Base: 500_000_000, Quote: 1_000_000_000}, preview.Reserves)
	assert.Equal(t, uint64(10_000_000), preview.Fee)
	assert.Equal(t, uint64(990_000_000), preview.NetQuote)
}

func TestPreview_MissingPool(t *testing.T) {
	f := newFixture(t, fastOptions())
	f.rpc.On("GetAccountInfoWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(nil, rpc.ErrNotFound)
	f.rpc.On("GetTokenAccountBalance", mock.Anything, mock.Anything, mock.Anything).
		Return(&rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: "1"}}, nil)

	_, err := f.submitter.Preview(context.Background(), f.req)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
