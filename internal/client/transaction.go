// internal/client/transaction.go
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/program"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrConfirmationTimeout is returned when a sent transaction is not
// confirmed within Options.ConfirmTimeout.
var ErrConfirmationTimeout = errors.New("confirmation timeout")

// Prepared is a fully derived seed_spl call ready to be signed.
type Prepared struct {
	Accounts     *migration.SeedAccounts
	Nonce        uint8
	Instructions []solana.Instruction
}

// Prepare derives every account of the seed_spl call and assembles the
// instruction list, priority instructions first.
func (s *Submitter) Prepare(req Request) (*Prepared, error) {
	accounts, err := migration.DeriveSeedAccounts(s.ids, s.wallet.PublicKey, req.BaseMint, req.QuoteMint, req.MarketProgram, req.Market)
	if err != nil {
		return nil, fmt.Errorf("failed to derive accounts: %w", err)
	}
	keys, err := amm.DerivePoolKeys(s.ids.AMM, req.Market)
	if err != nil {
		return nil, err
	}

	instructions, err := priorityInstructions(s.opts.ComputeUnits, s.opts.PriorityFeeSol)
	if err != nil {
		return nil, err
	}
	nonce := keys.Authority.Nonce
	instructions = append(instructions, program.NewSeedSPLInstruction(s.ids.Migrator, accounts, nonce))

	return &Prepared{Accounts: accounts, Nonce: nonce, Instructions: instructions}, nil
}

// Submit prepares, signs and sends the seed_spl transaction, retrying
// transient failures until Options.MaxElapsed. Signatures of earlier
// attempts are kept: before resending, and when a resend is refused because
// the pool is already migrated, the earlier transactions are looked up and a
// landed one is returned instead of an error.
func (s *Submitter) Submit(ctx context.Context, req Request) (solana.Signature, error) {
	prepared, err := s.Prepare(req)
	if err != nil {
		return solana.Signature{}, err
	}

	log := s.logger.With(
		zap.String("pool", prepared.Accounts.Pool.String()),
		zap.Uint8("nonce", prepared.Nonce))

	var sent []solana.Signature
	attempt := 0
	op := func() (solana.Signature, error) {
		attempt++
		if sig, ok := s.landed(ctx, sent); ok {
			s.metrics.RecordSubmitAttempt(nil, false)
			log.Info("Earlier seed_spl transaction landed", zap.String("signature", sig.String()))
			return sig, nil
		}

		tx, err := s.createSignedTransaction(ctx, prepared.Instructions)
		if err != nil {
			return solana.Signature{}, err
		}
		earlier := len(sent)
		sig, err := s.submitAndConfirm(ctx, tx)
		if !sig.IsZero() {
			sent = append(sent, sig)
		}
		if err != nil && earlier > 0 && errors.Is(err, migration.ErrAlreadyMigrated) {
			s.metrics.RecordSubmitAttempt(nil, false)
			if landed, ok := s.landed(ctx, sent[:earlier]); ok {
				log.Info("Resend refused, earlier transaction landed", zap.String("signature", landed.String()))
				return landed, nil
			}
			// The refusal proves the pool moved; the cluster has not yet
			// reported the status of our earlier send.
			last := sent[earlier-1]
			log.Warn("Pool already migrated after an earlier send, status not yet visible",
				zap.String("signature", last.String()),
				zap.Error(err))
			return last, nil
		}

		var permanent *backoff.PermanentError
		s.metrics.RecordSubmitAttempt(err, err != nil && !errors.As(err, &permanent))
		if err != nil {
			log.Warn("seed_spl attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return sig, err
	}
	started := time.Now()

	sig, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(s.backoff()),
		backoff.WithMaxElapsedTime(s.opts.MaxElapsed),
	)
	s.metrics.RecordMigration("onchain", req.QuoteMint.String(), 0, time.Since(started), err)
	if err != nil {
		return solana.Signature{}, err
	}
	log.Info("seed_spl confirmed", zap.String("signature", sig.String()), zap.Int("attempts", attempt))
	return sig, nil
}

// landed returns the first of sigs the cluster reports as executed without
// error at confirmed commitment or better.
func (s *Submitter) landed(ctx context.Context, sigs []solana.Signature) (solana.Signature, bool) {
	if len(sigs) == 0 {
		return solana.Signature{}, false
	}
	statuses, err := s.rpc.GetSignatureStatuses(ctx, true, sigs...)
	if err != nil || statuses == nil {
		s.logger.Debug("signature status lookup failed", zap.Int("signatures", len(sigs)), zap.Error(err))
		return solana.Signature{}, false
	}
	for i, status := range statuses.Value {
		if i >= len(sigs) || status == nil || status.Err != nil {
			continue
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return sigs[i], true
		}
	}
	return solana.Signature{}, false
}

func (s *Submitter) createSignedTransaction(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	latest, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, latest.Value.Blockhash, solana.TransactionPayer(s.wallet.PublicKey))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}
	if err := s.wallet.SignTransaction(tx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	return tx, nil
}

func (s *Submitter) submitAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.opts.SkipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, classify(err)
	}
	if err := s.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (s *Submitter) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	timeout := time.After(s.opts.ConfirmTimeout)

	for {
		select {
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		case <-timeout:
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
		case <-ticker.C:
			statuses, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				s.logger.Debug("signature status lookup failed", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return backoff.Permanent(statusError(sig, status.Err))
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

// priorityInstructions converts a SOL-denominated priority fee into the
// compute budget instructions. The unit price is in micro-lamports per
// compute unit. A zero or empty value adds nothing.
func priorityInstructions(computeUnits uint32, priorityFeeSol string) ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	if computeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(computeUnits).Build())
	}
	if priorityFeeSol == "" {
		return instructions, nil
	}
	fee, err := decimal.NewFromString(priorityFeeSol)
	if err != nil {
		return nil, fmt.Errorf("invalid priority fee: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("invalid priority fee: %s is negative", priorityFeeSol)
	}
	microLamports := fee.Shift(12).Truncate(0)
	if microLamports.IsPositive() {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(uint64(microLamports.IntPart())).Build())
	}
	return instructions, nil
}
