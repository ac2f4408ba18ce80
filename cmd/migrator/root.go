// cmd/migrator/root.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pool-migrator/internal/config"
	"github.com/rovshanmuradov/pool-migrator/internal/logger"
	"github.com/rovshanmuradov/pool-migrator/internal/metrics"
	"github.com/rovshanmuradov/pool-migrator/internal/storage"
	"github.com/rovshanmuradov/pool-migrator/internal/storage/memory"
	"github.com/rovshanmuradov/pool-migrator/internal/storage/redisstore"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// app carries what every subcommand shares once the root has run.
type app struct {
	configPath string
	logLevel   string
	pretty     bool

	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Collector
	shutdown *shutdown
}

// newRootCommand wires the subcommands to a. Callers close a after
// executing the command, whatever the outcome.
func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Migrate filled bonding-curve pools into a Raydium AMM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to a config file (json, yaml or toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log.level")
	flags.BoolVar(&a.pretty, "pretty", false, "short colored console logs")

	cmd.AddCommand(
		newEncodeCommand(),
		newDecodeCommand(),
		newFeeCommand(),
		newDeriveCommand(a),
		newSeedCommand(a),
		newSubmitCommand(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.pretty {
		cfg.Log.Pretty = true
	}

	l, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = l
	a.shutdown = newShutdown(l.WithComponent("shutdown"), 0)
	a.shutdown.addFunc("logger", func() error {
		// stdout sync fails on terminals and pipes
		_ = l.Sync()
		return nil
	})

	a.metrics = metrics.NewCollector()
	if cfg.MetricsFile != "" {
		a.shutdown.addFunc("metrics", func() error {
			return a.metrics.WriteTextfile(cfg.MetricsFile)
		})
	}
	return nil
}

// execute runs the command tree and releases everything it opened.
func execute(ctx context.Context, args []string, configure func(*cobra.Command)) error {
	a := &app{}
	cmd := newRootCommand(a)
	if args != nil {
		cmd.SetArgs(args)
	}
	if configure != nil {
		configure(cmd)
	}
	err := cmd.ExecuteContext(ctx)
	if a.shutdown != nil {
		err = errors.Join(err, a.shutdown.run(context.WithoutCancel(ctx)))
	}
	return err
}

// openStore opens the configured store and registers it for shutdown.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch a.cfg.Storage.Driver {
	case config.StorageRedis:
		store, err = redisstore.New(ctx, a.cfg.RedisOptions(), a.log.Logger)
		if err != nil {
			return nil, err
		}
	default:
		store = memory.New()
	}
	a.shutdown.add("store", store)
	a.log.Debug("Store opened", zap.String("driver", a.cfg.Storage.Driver))
	return store, nil
}

func (a *app) openJournal() (*logger.Journal, error) {
	if a.cfg.JournalPath == "" {
		return nil, nil
	}
	j, err := logger.OpenJournal(a.cfg.JournalPath, a.log.WithComponent("journal"))
	if err != nil {
		return nil, err
	}
	a.shutdown.add("journal", j)
	return j, nil
}

// poolFlags are the flags that name a pool and its target market.
type poolFlags struct {
	baseMint  string
	quoteMint string
	market    string
}

func (f *poolFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.baseMint, "base-mint", "", "base token mint")
	fs.StringVar(&f.quoteMint, "quote-mint", solana.SolMint.String(), "quote token mint")
	fs.StringVar(&f.market, "market", "", "openbook market the AMM pool is created for")
}

func (f *poolFlags) keys() (base, quote, market solana.PublicKey, err error) {
	for _, p := range []struct {
		name string
		raw  string
		dst  *solana.PublicKey
	}{
		{"base-mint", f.baseMint, &base},
		{"quote-mint", f.quoteMint, &quote},
		{"market", f.market, &market},
	} {
		if p.raw == "" {
			return base, quote, market, fmt.Errorf("--%s is required", p.name)
		}
		key, perr := solana.PublicKeyFromBase58(p.raw)
		if perr != nil {
			return base, quote, market, fmt.Errorf("invalid --%s: %w", p.name, perr)
		}
		*p.dst = key
	}
	return base, quote, market, nil
}
