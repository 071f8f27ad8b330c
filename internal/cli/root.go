package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"tokcount/config"
	"tokcount/internal/adapter/encoding"
	"tokcount/internal/adapter/fs"
	"tokcount/internal/adapter/store"
	"tokcount/internal/port"
	"tokcount/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tokcount",
	Short: "Count the tokens in the project documentation",
	Long: `tokcount reads the documentation file, encodes it with a tiktoken
encoding and prints the approximate number of tokens.

By default it counts ./DOCS.md with cl100k_base. Both can be changed in
tokcount.yaml.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()
		return run(cmd.OutOrStdout(), cfg, rootDir, logger)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tokcount.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

// run counts the configured document and writes the summary line to out.
func run(out io.Writer, cfg *config.Config, dir string, logger *zap.Logger) error {
	path := cfg.DocumentPath(dir)

	var cache port.CountCache
	if cfg.Cache.Enabled {
		bc, err := openCache(cfg, dir, logger)
		if err != nil {
			return err
		}
		defer bc.Close()
		cache = bc
	}

	var progress io.Writer
	if cfg.Output.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		progress = os.Stderr
	}

	counter := usecase.NewCountUseCase(
		encoding.NewTiktokenProvider(cfg.Encoding.Offline, logger),
		fs.NewReader(progress),
		cache,
		logger,
	)

	logger.Debug("counting tokens",
		zap.String("path", path),
		zap.String("encoding", cfg.Encoding.Name),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	count, err := counter.CountFile(path, cfg.Encoding.Name)
	if err != nil {
		return err
	}

	logger.Info("tokens counted",
		zap.String("path", count.Path),
		zap.String("encoding", count.Encoding),
		zap.Int("bytes", count.Bytes),
		zap.Int("tokens", count.Tokens),
	)

	_, err = fmt.Fprintf(out, "Approx. number of tokens in the %s documentation: %d\n", cfg.Document.Title, count.Tokens)
	return err
}

func openCache(cfg *config.Config, dir string, logger *zap.Logger) (*store.BoltCache, error) {
	if err := config.EnsureStateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create .tokcount directory: %w", err)
	}

	bc, err := store.NewBoltCache(config.CacheDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open count cache: %w", err)
	}

	result, err := bc.Prepare(cfg)
	if err != nil {
		bc.Close()
		return nil, fmt.Errorf("failed to prepare count cache: %w", err)
	}
	if result.Stale {
		logger.Info("count cache cleared", zap.String("reason", result.Reason))
	} else if result.Fresh {
		logger.Debug("count cache created", zap.String("path", config.CacheDBPath(dir)))
	}

	return bc, nil
}
