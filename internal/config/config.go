// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rovshanmuradov/pool-migrator/internal/amm"
	"github.com/rovshanmuradov/pool-migrator/internal/client"
	"github.com/rovshanmuradov/pool-migrator/internal/logger"
	"github.com/rovshanmuradov/pool-migrator/internal/migration"
	"github.com/rovshanmuradov/pool-migrator/internal/storage/redisstore"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MIGRATOR_RPC_URL.
const EnvPrefix = "MIGRATOR"

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	PrivateKey       string        `mapstructure:"private_key"`
	MigratorProgram  string        `mapstructure:"migrator_program"`
	AmmProgram       string        `mapstructure:"amm_program"`
	MarketProgram    string        `mapstructure:"market_program"`
	ComputeUnits     uint32        `mapstructure:"compute_units"`
	PriorityFee      string        `mapstructure:"priority_fee"`
	SkipPreflight    bool          `mapstructure:"skip_preflight"`
	RetryTimeoutMs   int           `mapstructure:"retry_timeout_ms"`
	ConfirmTimeoutMs int           `mapstructure:"confirm_timeout_ms"`
	PollIntervalMs   int           `mapstructure:"poll_interval_ms"`
	JournalPath      string        `mapstructure:"journal_path"`
	MetricsFile      string        `mapstructure:"metrics_file"`
	Storage          StorageConfig `mapstructure:"storage"`
	Log              LogConfig     `mapstructure:"log"`
}

type StorageConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	// ConflictRetries bounds how often a transaction is re-run when another
	// process changed what it read.
	ConflictRetries uint `mapstructure:"conflict_retries"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Pretty     bool   `mapstructure:"pretty"`
}

const (
	DefaultComputeUnits     = 400_000
	DefaultRetryTimeoutMs   = 15_000
	DefaultConfirmTimeoutMs = 30_000
	DefaultPollIntervalMs   = 500
	DefaultJournalPath      = "logs/migrations.csv"
	DefaultConflictRetries  = 5
)

func defaults() map[string]interface{} {
	lc := logger.DefaultConfig()
	return map[string]interface{}{
		"rpc_url":                  "",
		"private_key":              "",
		"migrator_program":         "",
		"amm_program":              amm.RaydiumV4ProgramID.String(),
		"market_program":           amm.OpenBookProgramID.String(),
		"compute_units":            DefaultComputeUnits,
		"priority_fee":             "",
		"skip_preflight":           false,
		"retry_timeout_ms":         DefaultRetryTimeoutMs,
		"confirm_timeout_ms":       DefaultConfirmTimeoutMs,
		"poll_interval_ms":         DefaultPollIntervalMs,
		"journal_path":             DefaultJournalPath,
		"metrics_file":             "",
		"storage.driver":           StorageMemory,
		"storage.redis.addr":       "",
		"storage.redis.password":   "",
		"storage.redis.db":         0,
		"storage.redis.prefix":     "migrator",
		"storage.conflict_retries": DefaultConflictRetries,
		"log.level":                lc.Level,
		"log.file":                 lc.LogFile,
		"log.max_size":             lc.MaxSize,
		"log.max_age":              lc.MaxAge,
		"log.max_backups":          lc.MaxBackups,
		"log.compress":             lc.Compress,
		"log.pretty":               lc.Pretty,
	}
}

// LoadConfig reads the file at path (any format viper understands), then
// applies MIGRATOR_* environment overrides. A .env file next to the config,
// or in the working directory when path is empty, is loaded first. An empty
// path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

func loadDotEnv(path string) error {
	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
	}
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL != "" {
		if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
			return fmt.Errorf("invalid rpc_url: %w", err)
		}
	}
	for name, key := range map[string]string{
		"migrator_program": cfg.MigratorProgram,
		"amm_program":      cfg.AmmProgram,
		"market_program":   cfg.MarketProgram,
	} {
		if key == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	switch cfg.Storage.Driver {
	case StorageMemory:
	case StorageRedis:
		if cfg.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.RetryTimeoutMs <= 0 {
		return errors.New("invalid retry_timeout_ms")
	}
	if cfg.ConfirmTimeoutMs <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.Storage.Redis.DB < 0 {
		return errors.New("invalid storage.redis.db")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// ProgramIDs parses the configured program addresses. The migrator program
// has no default and must be set.
func (c *Config) ProgramIDs() (migration.ProgramIDs, error) {
	if c.MigratorProgram == "" {
		return migration.ProgramIDs{}, errors.New("migrator_program is not configured")
	}
	migrator, err := solana.PublicKeyFromBase58(c.MigratorProgram)
	if err != nil {
		return migration.ProgramIDs{}, fmt.Errorf("invalid migrator_program: %w", err)
	}
	ammID, err := solana.PublicKeyFromBase58(c.AmmProgram)
	if err != nil {
		return migration.ProgramIDs{}, fmt.Errorf("invalid amm_program: %w", err)
	}
	return migration.ProgramIDs{Migrator: migrator, AMM: ammID}, nil
}

// MarketProgramID parses market_program.
func (c *Config) MarketProgramID() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(c.MarketProgram)
}

func (c *Config) SubmitterOptions() client.Options {
	return client.Options{
		ComputeUnits:   c.ComputeUnits,
		PriorityFeeSol: c.PriorityFee,
		SkipPreflight:  c.SkipPreflight,
		MaxElapsed:     time.Duration(c.RetryTimeoutMs) * time.Millisecond,
		ConfirmTimeout: time.Duration(c.ConfirmTimeoutMs) * time.Millisecond,
		PollInterval:   time.Duration(c.PollIntervalMs) * time.Millisecond,
	}
}

func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Log.Level,
		LogFile:    c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxAge:     c.Log.MaxAge,
		MaxBackups: c.Log.MaxBackups,
		Compress:   c.Log.Compress,
		Pretty:     c.Log.Pretty,
	}
}

func (c *Config) RedisOptions() redisstore.Options {
	return redisstore.Options{
		Addr:     c.Storage.Redis.Addr,
		Password: c.Storage.Redis.Password,
		DB:       c.Storage.Redis.DB,
		Prefix:   c.Storage.Redis.Prefix,
	}
}
