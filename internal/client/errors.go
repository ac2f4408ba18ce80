// internal/client/errors.go
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
)

// ProgramError is a custom error reported by a program during simulation
// or execution.
type ProgramError struct {
	Code uint32
	Name string
	Err  error
}

func (e *ProgramError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("program error %d (%s)", e.Code, e.Name)
	}
	return fmt.Sprintf("program error %d", e.Code)
}

// Unwrap returns the matching migration sentinel, if the code is one of ours.
func (e *ProgramError) Unwrap() error {
	return e.Err
}

func newProgramError(code uint32, name string) *ProgramError {
	return &ProgramError{Code: code, Name: name, Err: migration.FromCode(code)}
}

var (
	anchorNumber = regexp.MustCompile(`Error Number: (\d+)`)
	anchorName   = regexp.MustCompile(`Error Code: (\w+)`)
	customHex    = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
)

// classify decides whether a send error is worth retrying. Stale
// blockhashes and node-side hiccups are retried; anything the program
// rejected is permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if perr := programErrorFrom(err); perr != nil {
		return backoff.Permanent(fmt.Errorf("transaction failed: %w", perr))
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "blockhashnotfound"), strings.Contains(msg, "blockhash not found"):
		return err
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return err
	case strings.Contains(msg, "node is behind"), strings.Contains(msg, "timeout"):
		return err
	}
	return backoff.Permanent(fmt.Errorf("transaction failed: %w", err))
}

func programErrorFrom(err error) *ProgramError {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if data, ok := rpcErr.Data.(map[string]interface{}); ok {
			if logs, ok := data["logs"].([]interface{}); ok {
				for _, entry := range logs {
					line, _ := entry.(string)
					if perr := parseAnchorLog(line); perr != nil {
						return perr
					}
				}
			}
		}
	}
	if m := customHex.FindStringSubmatch(err.Error()); m != nil {
		code, perr := strconv.ParseUint(m[1], 16, 32)
		if perr == nil {
			return newProgramError(uint32(code), "")
		}
	}
	return nil
}

// parseAnchorLog reads lines of the form
// "Program log: AnchorError occurred. Error Code: X. Error Number: N. Error Message: ...".
func parseAnchorLog(line string) *ProgramError {
	if !strings.Contains(line, "AnchorError") {
		return nil
	}
	m := anchorNumber.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return nil
	}
	var name string
	if n := anchorName.FindStringSubmatch(line); n != nil {
		name = n[1]
	}
	return newProgramError(uint32(code), name)
}

// statusError turns a signature status error such as
// {"InstructionError":[2,{"Custom":6001}]} into a typed error.
func statusError(sig solana.Signature, raw interface{}) error {
	if m, ok := raw.(map[string]interface{}); ok {
		if parts, ok := m["InstructionError"].([]interface{}); ok && len(parts) == 2 {
			if detail, ok := parts[1].(map[string]interface{}); ok {
				if code, ok := numeric(detail["Custom"]); ok {
					return fmt.Errorf("transaction %s failed: %w", sig, newProgramError(code, ""))
				}
			}
		}
	}
	return fmt.Errorf("transaction %s failed: %v", sig, raw)
}

func numeric(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		return uint32(n), n >= 0
	case json.Number:
		i, err := n.Int64()
		return uint32(i), err == nil && i >= 0
	case int:
		return uint32(n), n >= 0
	}
	return 0, false
}
