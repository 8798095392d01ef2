// Package cli implements the brickcore command tree.
package cli

import (
	"brickcore/internal/blob"
	"brickcore/internal/config"
	"brickcore/internal/core"
	logpkg "brickcore/internal/log"
	"brickcore/internal/report"
	"brickcore/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// needsService marks commands that run against a snapshot store.
const needsService = "brickcore/needs-service"

// app carries the state shared by one command invocation.
type app struct {
	stdout, stderr io.Writer

	cfgFile     string
	logLevel    string
	trace       bool
	metricsFile string

	cfg      config.Config
	logger   zerolog.Logger
	scheme   *domain.URLScheme
	svc      *core.Service
	provider *sdktrace.TracerProvider
	registry *prometheus.Registry
	expvar   *core.ExpvarMetricsRecorder
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	_, root := newRoot(stdout, stderr)
	return root
}

func newRoot(stdout, stderr io.Writer) (*app, *cobra.Command) {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "brickcore",
		Short:         "Build, store and report hierarchical BrickLink inventories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./brickcore.yaml or <user config dir>/brickcore/brickcore.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log.level (trace|debug|info|warn|error)")
	flags.BoolVar(&a.trace, "trace", false, "export OpenTelemetry spans (trace.exporter: stdout to stderr, or otlp)")
	flags.StringVar(&a.metricsFile, "metrics", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(
		a.ingestCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.treeCommand(),
		a.reportCommand(),
		a.verifyCommand(),
		a.snapshotsCommand(),
		a.resolveCommand(),
		a.watchCommand(),
	)
	return a, root
}

// Execute runs the command tree with args and reports the error on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a, root := newRoot(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		// post-run hooks are skipped when a command fails
		_ = a.teardown(ctx)
		_, _ = fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	if a.logger, err = logpkg.New(a.stderr, cfg.Log); err != nil {
		return err
	}
	a.scheme, err = domain.NewURLScheme(domain.URLSchemeConfig{
		CatalogBase:    cfg.Catalog.CatalogBase,
		ImageBase:      cfg.Catalog.ImageBase,
		InventoryQuery: cfg.Catalog.InventoryQuery,
	})
	if err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}
	if cmd.Annotations[needsService] == "" {
		return nil
	}

	ctx := cmd.Context()
	store, err := core.OpenSnapshotStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	opts := []core.ServiceOption{
		core.WithStore(store),
		core.WithLogger(logpkg.For(a.logger, logpkg.CompService)),
		core.WithURLScheme(a.scheme),
		core.WithCacheTTL(cfg.Cache.TTL, cfg.Cache.Cleanup),
	}
	if a.trace {
		tracer, err := a.tracer(ctx)
		if err != nil {
			_ = store.Close()
			return err
		}
		opts = append(opts, core.WithTracer(tracer))
	}
	if a.metricsFile != "" {
		rec, err := a.metrics()
		if err != nil {
			_ = store.Close()
			return err
		}
		opts = append(opts, core.WithMetrics(rec))
	}
	a.svc = core.NewService(opts...)
	a.logger.Debug().Str("command", cmd.Name()).Str("storage", cfg.Storage.Driver).Msg("service ready")
	return nil
}

// teardown flushes metrics and spans and closes the store. It is safe to
// call more than once.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
		a.registry = nil
	}
	if a.expvar != nil {
		if err := writeExpvar(a.metricsFile, a.expvar); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
		a.expvar = nil
	}
	if a.provider != nil {
		errs = append(errs, a.provider.Shutdown(context.WithoutCancel(ctx)))
		a.provider = nil
	}
	if a.svc != nil {
		errs = append(errs, a.svc.Close())
		a.svc = nil
	}
	return errors.Join(errs...)
}

// tracer builds the span sink named by trace.exporter. The json exporter
// writes one line per span to stderr without an OpenTelemetry SDK.
func (a *app) tracer(ctx context.Context) (core.Tracer, error) {
	var err error
	switch a.cfg.Trace.Exporter {
	case "json":
		return core.NewJSONTracer(a.stderr), nil
	case "otlp":
		a.provider, err = core.NewOTLPTracerProvider(ctx, a.cfg.Trace.Endpoint)
	default:
		a.provider, err = core.NewStdoutTracerProvider(a.stderr)
	}
	if err != nil {
		return nil, err
	}
	return core.NewOTelTracer(a.provider), nil
}

// metrics builds the recorder named by metrics.exporter; teardown writes it
// to the --metrics file.
func (a *app) metrics() (core.MetricsRecorder, error) {
	if a.cfg.Metrics.Exporter == "expvar" {
		a.expvar = core.NewExpvarMetricsRecorder("")
		return a.expvar, nil
	}
	a.registry = prometheus.NewRegistry()
	return core.NewPrometheusMetricsRecorder(a.registry)
}

func writeExpvar(path string, rec *core.ExpvarMetricsRecorder) error {
	b, err := json.MarshalIndent(rec.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func (a *app) publisher(ctx context.Context) (*report.Publisher, error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, err
	}
	return report.NewPublisher(store,
		report.WithPublisherLogger(logpkg.For(a.logger, logpkg.CompReport)),
	), nil
}

func withService(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsService] = "true"
	return cmd
}
