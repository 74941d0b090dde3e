// Package main provides the chromacli entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/chromacli/internal/config"
	"github.com/matsen/chromacli/internal/embedding"
	"github.com/matsen/chromacli/internal/vectordb"
)

// Version is set at build time via ldflags
var Version = "dev"

// Global flags.
var (
	dbPath            string
	dbName            string
	chromaURL         string
	embeddingProvider string
	jsonOutput        bool
	verbose           bool
)

// logger is replaced in PersistentPreRunE once --verbose is known.
var logger = zap.NewNop()

// newClient opens the store selected by the global flags. Tests swap it for
// a recording fake.
var newClient = openClient

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd.ErrOrStderr(), rootCmd.OutOrStdout(), err)
		return exitCode(err)
	}
	return ExitSuccess
}

var rootCmd = &cobra.Command{
	Use:   "chromacli",
	Short: "Command-line front-end for Chroma vector databases",
	Long: `chromacli manages collections and documents in a Chroma vector database.

By default it uses an embedded persistent store in ~/.chromadb/<db-name>.
Point it at a Chroma server with --chroma-url or CHROMA_URL instead.

Database path resolution:
  --db-path, then CHROMA_DB_PATH, then db_path in the config file,
  then ~/.chromadb/{db-name}.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db-path", "", "Path to the database directory (overrides CHROMA_DB_PATH)")
	flags.StringVar(&dbName, "db-name", "", fmt.Sprintf("Database name used in the default path ~/.chromadb/{db-name} (default %q)", config.DefaultDBName))
	flags.StringVar(&chromaURL, "chroma-url", "", "Chroma server URL; overrides the local store (env CHROMA_URL)")
	flags.StringVar(&embeddingProvider, "embedding", "", "Embedding provider: ollama or hash")
	flags.BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	flags.BoolVar(&verbose, "verbose", false, "Log debug details to stderr")

	rootCmd.Version = Version
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
}

// newLogger builds a console logger on stderr: warnings by default, debug
// with --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// resolveSettings merges the global flags, environment and config file.
func resolveSettings() (*config.Settings, error) {
	global, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, configError{err}
	}
	settings, err := config.Resolve(config.Overrides{
		DBPath:            dbPath,
		DBName:            dbName,
		ChromaURL:         chromaURL,
		EmbeddingProvider: embeddingProvider,
	}, global, os.Getenv)
	if err != nil {
		return nil, configError{err}
	}
	return settings, nil
}

// openClient resolves settings and opens the selected backend.
func openClient(cmd *cobra.Command) (vectordb.Client, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, err
	}

	// An explicit --embedding means the user wants that provider or an error.
	explicit := cmd.Flag("embedding") != nil && cmd.Flag("embedding").Changed
	provider, err := embedding.New(embedding.Config{
		Provider:          settings.Embedding.Provider,
		Model:             settings.Embedding.Model,
		Dimensions:        settings.Embedding.Dimensions,
		OllamaURL:         settings.Embedding.OllamaURL,
		RequestsPerSecond: settings.Embedding.RequestsPerSecond,
		Fallback:          !explicit,
	}, logger)
	if err != nil {
		return nil, configError{err}
	}
	opts := vectordb.Options{
		ChromaURL: settings.ChromaURL,
		DBPath:    settings.DBPath,
		Provider:  provider,
		Logger:    logger,
	}

	logger.Debug("opening vector store",
		zap.String("db_path", settings.DBPath),
		zap.String("db_path_source", settings.DBPathSource),
		zap.String("chroma_url", settings.ChromaURL),
	)

	client, err := vectordb.Open(opts)
	if err != nil {
		return nil, configError{err}
	}
	return client, nil
}

// withClient opens a client, runs fn and closes the client.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c vectordb.Client) error) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("closing client", zap.Error(cerr))
		}
	}()
	return fn(cmd.Context(), client)
}
