package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dyluth/micra/internal/config"
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/internal/retry"
	"github.com/dyluth/micra/pkg/store"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	configPath string
	redisURL   string
	verbose    bool
	quiet      bool

	logLevel = &slog.LevelVar{}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "micra",
	Short: "Micra - typed views over Redis data structures",
	Long: `Micra describes Redis keys with a catalog of content types and structures
stored in Redis itself, and renders them as joined, sortable tables.

Records are Redis hashes updated with optimistic concurrency, and a coordinator
serves a Redis list of textual commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to micra.yml")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL (overrides "+config.RedisURLEnv+" and redis.url)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug messages")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Log warnings and errors only")
}

func setupLogger() {
	switch {
	case verbose:
		logLevel.Set(slog.LevelDebug)
	case quiet:
		logLevel.Set(slog.LevelWarn)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

// loadConfig reads --config, falling back to defaults when the file is absent.
func loadConfig() (*config.MicraConfig, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or pass --config with another file", configPath)},
		)
	}
	return cfg, nil
}

// connect opens and pings the configured Redis.
func connect(ctx context.Context, cfg *config.MicraConfig) (*store.Client, error) {
	url := cfg.RedisURL(redisURL)
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, printer.Error("Invalid Redis URL", err.Error(), nil)
	}
	client, err := store.NewClient(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Cannot reach Redis",
			err.Error(),
			map[string]string{"URL": url},
			[]string{"Start Redis or point --redis / " + config.RedisURLEnv + " at a running server"},
		)
	}
	return client, nil
}

// session loads config and connects; the caller closes the client.
func session(cmd *cobra.Command) (*config.MicraConfig, *store.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := connect(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func retryPolicy(cfg *config.MicraConfig) retry.Policy {
	return retry.Policy{
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
	}
}

// notDefined renders a catalog miss with a pointer to the listing commands.
func notDefined(kind, identifier string, err error) error {
	return printer.Error(
		fmt.Sprintf("%s '%s' is not defined", kind, identifier),
		err.Error(),
		[]string{"List definitions with: micra structures / micra types", "Register definitions with: micra define"},
	)
}
