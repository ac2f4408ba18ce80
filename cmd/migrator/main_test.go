package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMigrator = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = writeFile(t, dir, "config.yaml", fmt.Sprintf(
		"migrator_program: %s\njournal_path: %s\nmetrics_file: %s\nlog:\n  level: error\n  file: %s\n",
		testMigrator, filepath.Join(dir, "journal.csv"), filepath.Join(dir, "migrator.prom"),
		filepath.Join(dir, "migrator.log")))
	return dir, path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, func(cmd *cobra.Command) {
		cmd.SetOut(&out)
		cmd.SetErr(&out)
	})
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	_, cfg := testConfig(t)

	out, err := run(t, "encode", "--config", cfg, "--nonce", "254", "--open-time", "1700000000",
		"--pc", "500000000", "--coin", "990000000")
	require.NoError(t, err)
	encoded := strings.TrimSpace(out)
	assert.Len(t, encoded, 52)
	assert.True(t, strings.HasPrefix(encoded, "01fe"))

	out, err = run(t, "decode", "--config", cfg, encoded)
	require.NoError(t, err)
	assert.Contains(t, out, "nonce:       254")
	assert.Contains(t, out, "pc_amount:   500000000")
	assert.Contains(t, out, "coin_amount: 990000000")

	_, err = run(t, "decode", "--config", cfg, "01fe")
	assert.Error(t, err)
}

func TestFee(t *testing.T) {
	_, cfg := testConfig(t)

	out, err := run(t, "fee", "--config", cfg, "1000000000", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "fee:     10000000 (0.01)")
	assert.Contains(t, out, "net:     990000000 (0.99)")
	assert.Contains(t, out, "rate:    1%")

	_, err = run(t, "fee", "--config", cfg, "1000", "70000")
	assert.Error(t, err)
}

func TestDerive(t *testing.T) {
	_, cfg := testConfig(t)

	out, err := run(t, "derive", "--config", cfg,
		"--base-mint", solana.NewWallet().PublicKey().String(),
		"--market", solana.NewWallet().PublicKey().String())
	require.NoError(t, err)
	for _, name := range migration.SeedAccountNames {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "nonce")

	_, err = run(t, "derive", "--config", cfg)
	assert.ErrorContains(t, err, "--base-mint is required")
}

func TestSeed_WithState(t *testing.T) {
	dir, cfg := testConfig(t)
	state := writeFile(t, dir, "state.yaml", fmt.Sprintf(
		"base_mint: %s\nquote_mint: %s\nbase_reserve: 500000000\nquote_reserve: 1000000000\n"+
			"is_filled: true\nseeding_fee_bps: 100\ndecimals: 9\n",
		solana.NewWallet().PublicKey(), solana.SolMint))

	out, err := run(t, "seed", "--config", cfg, "--state", state,
		"--market", solana.NewWallet().PublicKey().String())
	require.NoError(t, err)
	assert.Contains(t, out, "fee:            10000000")
	assert.Contains(t, out, "net_quote:      990000000")
	assert.Contains(t, out, "lp_supply:")

	journal, err := os.ReadFile(filepath.Join(dir, "journal.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(journal)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "migrated")

	prom, err := os.ReadFile(filepath.Join(dir, "migrator.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `pool_migrator_migrations_total{code="0",mode="local",status="success"} 1`)
}

func TestSeed_NotFilledIsJournaled(t *testing.T) {
	dir, cfg := testConfig(t)
	state := writeFile(t, dir, "state.json", fmt.Sprintf(
		`{"base_mint": %q, "quote_mint": %q, "quote_reserve": 5, "seeding_fee_bps": 100}`,
		solana.NewWallet().PublicKey(), solana.SolMint))

	_, err := run(t, "seed", "--config", cfg, "--state", state,
		"--market", solana.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, migration.ErrTradingNotEnded)
	id := migration.CorrelationID(err)
	_, parseErr := uuid.Parse(id)
	require.NoError(t, parseErr)

	f, err := os.Open(filepath.Join(dir, "journal.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, id, rows[1][1])
	assert.Equal(t, "failed", rows[1][8])
}

func TestSubmit_RequiresRPC(t *testing.T) {
	_, cfg := testConfig(t)
	_, err := run(t, "submit", "--config", cfg)
	assert.ErrorContains(t, err, "rpc_url")
}

func TestShutdown_ReverseOrder(t *testing.T) {
	s := newShutdown(zap.NewNop(), time.Second)
	var order []string
	s.addFunc("first", func() error { order = append(order, "first"); return nil })
	s.addFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })

	err := s.run(context.Background())
	assert.ErrorContains(t, err, "second: boom")
	assert.Equal(t, []string{"second", "first"}, order)

	assert.NoError(t, s.run(context.Background()))
}

func TestShutdown_Timeout(t *testing.T) {
	s := newShutdown(zap.NewNop(), 10*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	s.addFunc("stuck", func() error { <-release; return nil })

	assert.ErrorContains(t, s.run(context.Background()), "close timeout")
}
