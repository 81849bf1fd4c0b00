package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/loader"
	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

const loadLongDesc = `Ingest every supported file under a directory.

Files are read in sorted order and sent in batches by a pool of workers.
With --state-dir, progress is written to cursor.json after every batch and
an interrupted load resumes from the first unfinished batch.`

func newLoadCmd(a *app) *cobra.Command {
	var (
		cfg         loader.Config
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "load <kind> <dir>",
		Short: "Bulk-ingest a directory tree",
		Long:  loadLongDesc,
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&cfg.Category, "category", "", "category tag for every file")
	cmd.Flags().StringToStringVar(&cfg.Attributes, "attr", nil, "extra attribute key=value (repeatable)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", loader.DefaultWorkers, "parallel ingest workers")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", loader.DefaultBatchSize, "files per ingest call")
	cmd.Flags().IntVar(&cfg.MaxFiles, "max-files", 0, "stop after this many files (0 = all)")
	cmd.Flags().StringVar(&cfg.StateDir, "state-dir", "", "directory for the resume cursor")
	cmd.Flags().BoolVar(&cfg.Reset, "reset", false, "ignore saved progress and start over")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while loading")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		cfg.Kind = kind
		cfg.Root = args[1]

		return a.run(func(ctx context.Context, c *simdex.Client) error {
			reg := prometheus.NewRegistry()
			l := loader.New(c.Items(kind), cfg, a.logger).WithMetrics(loader.NewMetrics(reg))
			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, reg, a.logger)
				defer func() {
					shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutCtx)
				}()
			}

			res, err := l.Run(ctx)
			if perr := printJSON(cmd.OutOrStdout(), map[string]any{
				"discovered": res.Discovered,
				"skipped":    res.Skipped,
				"processed":  res.Processed,
				"failed":     res.Failed,
				"duration":   res.Duration.String(),
			}); perr != nil {
				return perr
			}
			return err
		})(cmd, args)
	}
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
