// internal/migration/errors.go
package migration

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/curve"
)

var (
	ErrTradingNotEnded    = errors.New("trading has not ended")
	ErrAlreadyMigrated    = errors.New("pool already migrated")
	ErrExternalCallFailed = errors.New("external call failed")
	ErrTransferFailed     = errors.New("fee transfer failed")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidFeeBps      = errors.New("seeding fee bps out of range")
	ErrInvalidNonce       = errors.New("nonce does not match amm authority")

	ErrArithmeticUnderflow = curve.ErrArithmeticUnderflow
	ErrArithmeticOverflow  = curve.ErrArithmeticOverflow
)

// Custom program error codes, numbered the way Anchor numbers user errors.
const (
	CodeTradingNotEnded uint32 = 6000 + iota
	CodeAlreadyMigrated
	CodeArithmeticUnderflow
	CodeArithmeticOverflow
	CodeExternalCallFailed
	CodeTransferFailed
	CodeInvalidAccount
	CodeInvalidFeeBps
	CodeInvalidNonce
	CodeInvalidInstruction
	CodeUnknown
)

// Code maps an error returned by this package to its program error code.
func Code(err error) uint32 {
	switch {
	case errors.Is(err, ErrTradingNotEnded):
		return CodeTradingNotEnded
	case errors.Is(err, ErrAlreadyMigrated):
		return CodeAlreadyMigrated
	case errors.Is(err, ErrArithmeticUnderflow):
		return CodeArithmeticUnderflow
	case errors.Is(err, ErrArithmeticOverflow):
		return CodeArithmeticOverflow
	case errors.Is(err, ErrExternalCallFailed):
		return CodeExternalCallFailed
	case errors.Is(err, ErrTransferFailed):
		return CodeTransferFailed
	case errors.Is(err, ErrInvalidAccount):
		return CodeInvalidAccount
	case errors.Is(err, ErrInvalidFeeBps):
		return CodeInvalidFeeBps
	case errors.Is(err, ErrInvalidNonce):
		return CodeInvalidNonce
	case errors.Is(err, amm.ErrTruncatedInput), errors.Is(err, amm.ErrUnknownVariant):
		return CodeInvalidInstruction
	default:
		return CodeUnknown
	}
}

// FromCode is the inverse of Code for errors reported by the on-chain
// program. Unknown codes return nil.
func FromCode(code uint32) error {
	switch code {
	case CodeTradingNotEnded:
		return ErrTradingNotEnded
	case CodeAlreadyMigrated:
		return ErrAlreadyMigrated
	case CodeArithmeticUnderflow:
		return ErrArithmeticUnderflow
	case CodeArithmeticOverflow:
		return ErrArithmeticOverflow
	case CodeExternalCallFailed:
		return ErrExternalCallFailed
	case CodeTransferFailed:
		return ErrTransferFailed
	case CodeInvalidAccount:
		return ErrInvalidAccount
	case CodeInvalidFeeBps:
		return ErrInvalidFeeBps
	case CodeInvalidNonce:
		return ErrInvalidNonce
	case CodeInvalidInstruction:
		return amm.ErrUnknownVariant
	default:
		return nil
	}
}

// ValidationError describes an account that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAccount
}

// AttemptError tags a failed migration attempt with its correlation id.
type AttemptError struct {
	CorrelationID string
	Err           error
}

func (e *AttemptError) Error() string {
	return e.Err.Error()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// CorrelationID returns the id of the failed attempt err came from, or ""
// when err carries none.
func CorrelationID(err error) string {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.CorrelationID
	}
	return ""
}

// StageError records which step of a migration failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("migration failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
