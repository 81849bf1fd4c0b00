// Package cli implements simdexctl, the command line client for a simdex corpus.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/config"
	logpkg "github.com/kailas-cloud/simdex/internal/logger"
	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

const rootLongDesc = `simdexctl manages a simdex corpus directly through the store.

It reads the same YAML configuration as the server (config/<env>.yaml, or
--config), so it talks to the same database and descriptor services.

Examples:
  simdexctl ingest image photos/*.jpg --category animals
  simdexctl load mesh ./models --workers 8 --state-dir .simdex
  simdexctl search image query.jpg --top-n 10
  simdexctl search image query.jpg --relevant cat.jpg --irrelevant car.jpg
  simdexctl weights show image`

// clientFactory opens a client for a loaded configuration.
type clientFactory func(ctx context.Context, cfg config.Config, debug bool) (*simdex.Client, error)

type app struct {
	env        string
	configPath string
	debug      bool
	timeout    time.Duration

	newClient clientFactory
	cfg       config.Config
	client    *simdex.Client
	logger    *zap.Logger
}

// NewRootCmd builds the simdexctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newClient: openClient})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "simdexctl",
		Short:         "Manage and query a simdex similarity corpus",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "configuration environment (local, docker, prod)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file, overrides --env")
	cmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 5*time.Minute, "overall command timeout")

	cmd.AddCommand(
		newDescribeCmd(a),
		newIngestCmd(a),
		newLoadCmd(a),
		newSearchCmd(a),
		newItemsCmd(a),
		newWeightsCmd(a),
		newHealthCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// connect loads the configuration and opens the client once per process.
func (a *app) connect(ctx context.Context) (*simdex.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.debug {
		level = "debug"
	}
	if a.logger, err = logpkg.NewLogger(a.env, level); err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	client, err := a.newClient(ctx, cfg, a.debug)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) loadConfig() (config.Config, error) {
	if a.configPath == "" {
		cfg, err := config.Load(a.env)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(a.configPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// run wraps a command body with the timeout and the client lifecycle.
func (a *app) run(fn func(ctx context.Context, c *simdex.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
		defer cancel()

		c, err := a.connect(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(ctx, c)
	}
}

func openClient(ctx context.Context, cfg config.Config, debug bool) (*simdex.Client, error) {
	opts := []simdex.Option{
		simdex.WithStore(cfg.Database.Driver, cfg.Database.Addrs...),
		simdex.WithCredentials(cfg.Database.Username, cfg.Database.Password),
		simdex.WithDatabase(cfg.Database.DB),
		simdex.WithPipelineSize(cfg.Database.BatchSize),
		simdex.WithImageExtractor(cfg.Extractor.ImageURL),
		simdex.WithMeshExtractor(cfg.Extractor.MeshURL),
		simdex.WithExtractorTimeout(time.Duration(cfg.Extractor.TimeoutSec) * time.Second),
		simdex.WithExtractorRetries(cfg.Extractor.Retries),
		simdex.WithKeyPrefix(cfg.Storage.KeyPrefix),
		simdex.WithAdaptation(*cfg.Adaptation.Alpha, *cfg.Adaptation.Beta, *cfg.Adaptation.Gamma),
		simdex.WithMaxBatchSize(cfg.Search.MaxBatchSize),
		simdex.WithMaxCASAttempts(cfg.Search.MaxCASAttempts),
	}
	if cfg.Extractor.Cache {
		opts = append(opts, simdex.WithFeatureCache())
	}
	if cfg.Adaptation.Policy == "normalize" {
		opts = append(opts, simdex.WithNormalize())
	}
	if debug {
		opts = append(opts, simdex.WithLogger(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	client, err := simdex.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return client, nil
}
