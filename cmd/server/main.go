/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the residency engine. The root command loads
  configuration and logging; subcommands either serve the HTTP API or run
  one accounting operation against the stored trips.

COMMANDS:
  serve                      HTTP API (default when no subcommand is given)
  status [--date D]          Days present in the trailing year
  check --date D             Is departing on D safe?
  trips list                 Stored trips
  trips add --departure --arrival
  trips delete <id>
  trips export               iCalendar feed on stdout

CONFIGURATION:
  --config points at a YAML file; every key can be overridden with a
  RESIDENCY_* environment variable (RESIDENCY_AI_API_KEY, RESIDENCY_SERVER_PORT).
  See config/config.go for keys and defaults.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  residency serve --config ./residency.yaml

  # Run with in-memory database
  RESIDENCY_STORE_DB_PATH=":memory:" residency serve

  # One-off check
  residency check --date 2026-01-15

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warp/residency-engine/config"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
	"github.com/warp/residency-engine/store/sqlite"
)

var (
	configPath string
	language   string
	cfg        *config.Config
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "residency",
		Short:         "Residence permit day counter",
		Long:          "Track trips abroad and check the 183-days-in-a-trailing-year rule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}

			if cfg.Log.File != "" {
				logger, err = initFileLogger(cfg.Log.File, cfg.Log.Level)
				if err != nil {
					return err
				}
			} else {
				logger = initLogger(cfg.Log.Level)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&language, "lang", "en", "Language for display text (en, ru)")

	rootCmd.AddCommand(serveCmd(), statusCmd(), checkCmd(), tripsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// LOGGING
// =============================================================================

func initLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return logger
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		parseLevel(level),
	)
	return zap.New(core), nil
}

func parseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return zapLevel
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// openBook opens the configured store and wraps it in a trip book.
// The caller closes the store.
func openBook(opts ...residency.Option) (*residency.TripBook, *sqlite.Store, error) {
	if dir := filepath.Dir(cfg.Store.DBPath); cfg.Store.DBPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	store, err := sqlite.New(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	opts = append([]residency.Option{
		residency.WithOverlapPolicy(cfg.Residency.OverlapPolicy()),
		residency.WithLogger(logger.Named("book")),
		residency.WithClock(generic.RealClock{}),
	}, opts...)
	return residency.NewTripBook(store, opts...), store, nil
}

func localizer() (*locale.Localizer, error) {
	catalog, err := locale.Load()
	if err != nil {
		return nil, err
	}
	return catalog.For(language), nil
}
