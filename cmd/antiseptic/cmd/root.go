package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/solatis/antiseptic/internal/core/config"
	"github.com/solatis/antiseptic/internal/display"
	"github.com/solatis/antiseptic/internal/guess"
	"github.com/solatis/antiseptic/internal/journal"
	"github.com/solatis/antiseptic/internal/rename"
	"github.com/solatis/antiseptic/internal/rules"
	"github.com/solatis/antiseptic/internal/update"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const Version = "0.1.0"

var (
	configFile string
	logLevel   string
	logFormat  string
	logFile    string
	debug      bool
)

// Set up by the root command before any subcommand runs.
var (
	cfg      *config.Config
	logger   *zap.SugaredLogger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:           "antiseptic",
	Short:         "Clean up movie and series directory names",
	Long:          `antiseptic renames media directories and files by applying an ordered set of regular expression rules, kept up to date from an update server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, closeLog, err = newLogger(cmd.ErrOrStderr(), logLevel, logFormat, logFile, debug)
		if err != nil {
			return err
		}
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.ConfigFile != "" {
			logger.Debugw("loaded config", "file", cfg.ConfigFile)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write a debug log to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "shortcut for --log-level debug")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func newConsole(cmd *cobra.Command) *display.Console {
	return display.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
}

// loadStore reads the configured rule file, forwarding load diagnostics to
// the logger.
func loadStore() (*rules.Store, []rules.Warning, error) {
	store, warnings, err := rules.LoadFile(cfg.RulesFilename, cfg.DisabledRules, rules.LogSink{Logger: logger})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("no rules at %s, run 'antiseptic update' first", cfg.RulesFilename)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules from %s: %w", cfg.RulesFilename, err)
	}
	return store, warnings, nil
}

// newCleaner builds the configured cleaning strategy.
func newCleaner(strategy string) (rename.Cleaner, error) {
	switch strategy {
	case config.StrategyGuess:
		return guess.New(), nil
	case config.StrategyRegex, "":
		store, _, err := loadStore()
		if err != nil {
			return nil, err
		}
		return rules.NewEngine(store, rules.LogSink{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// openJournal returns nil when the journal is disabled.
func openJournal(ctx context.Context) (*journal.Journal, error) {
	if cfg.JournalURL == "" {
		return nil, nil
	}
	j, err := journal.Open(ctx, cfg.JournalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

// requireJournal is openJournal for commands that cannot work without one.
func requireJournal(ctx context.Context) (*journal.Journal, error) {
	if cfg.JournalURL == "" {
		return nil, fmt.Errorf("journal is disabled (journal_url is empty)")
	}
	return openJournal(ctx)
}

func newUpdater() *update.Updater {
	return &update.Updater{
		Client: update.NewClient(cfg.UpdateServer, cfg.MaxAttempts, cfg.RequestTimeout, logger),
		Path:   cfg.RulesFilename,
		Logger: logger,
	}
}
