// internal/amm/program.go
package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/authority"
)

// Program is the external AMM seen as a black box: it consumes encoded
// instruction data with a positional account list and either accepts or
// rejects it. signer is the derived authority the call is signed with.
type Program interface {
	Execute(ctx context.Context, data []byte, accounts solana.AccountMetaSlice, signer *authority.Signer) error
}

// ExternalError is a rejection reported by the AMM program.
type ExternalError struct {
	Code    uint32
	Message string
	Err     error
}

func (e *ExternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("amm rejected instruction (code %d): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("amm rejected instruction (code %d): %s", e.Code, e.Message)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}
