package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/macrochart/internal/adapters/presenter"
	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/adapters/sink/csvsink"
	"github.com/okian/macrochart/internal/adapters/sink/pgsink"
	"github.com/okian/macrochart/internal/adapters/source/fred"
	app "github.com/okian/macrochart/internal/app"
	"github.com/okian/macrochart/internal/charts"
	"github.com/okian/macrochart/internal/config"
	"github.com/okian/macrochart/pkg/logger"
	"github.com/okian/macrochart/pkg/metrics"
)

const (
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	userAgent                 = "macrochart/1.0"
)

// errChartsFailed makes `run` exit non-zero when any chart failed.
var errChartsFailed = errors.New("one or more charts failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runtimeEnv is what every subcommand starts from.
type runtimeEnv struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "macrochart",
		Short:        "Align macroeconomic time series and chart derived metrics",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (default: $MACRO_CONFIG)")

	setup := func() (*runtimeEnv, error) { return setupRuntime(cfgPath) }
	root.AddCommand(
		newRunCmd(setup),
		newServeCmd(setup),
		newListCmd(),
		newFixturesCmd(setup),
	)
	return root
}

// setupRuntime loads .env and config, then initialises logging.
func setupRuntime(cfgPath string) (*runtimeEnv, error) {
	if err := config.LoadDotenv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(context.Background(), cfgPath)
	if err != nil {
		return nil, err
	}
	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat, Output: os.Stderr}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(context.Background(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return &runtimeEnv{cfg: cfg, log: log}, nil
}

// newService builds the chart service from config. The returned closer
// releases the database pool when the Postgres sink is enabled.
func newService(ctx context.Context, env *runtimeEnv) (*app.Service, func(), error) {
	cfg := env.cfg
	renderers, err := buildRenderers(cfg.Formats)
	if err != nil {
		return nil, nil, err
	}
	sinks := []sink.Sink{csvsink.New(cfg.OutputDir)}
	closer := func() {}
	if cfg.DatabaseURL != "" {
		pool, pg, err := pgsink.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
		closer = pool.Close
	}
	svc := app.New(
		app.WithLogger(env.log.Named("service")),
		app.WithSources(buildSources(ctx, cfg, env.log)),
		app.WithParams(charts.Params{BaseYear: cfg.BaseYear, FocusEntity: cfg.FocusEntity}),
		app.WithWorkerCount(cfg.Workers),
		app.WithOutputDir(cfg.OutputDir),
		app.WithCanvas(cfg.Width, cfg.Height),
		app.WithRenderers(renderers...),
		app.WithSinks(sinks...),
	)
	return svc, closer, nil
}

// buildSources reads local extracts from the data dir and remote series
// from FRED, or from mirrored CSVs when no API key is configured.
func buildSources(ctx context.Context, cfg *config.Config, log logger.Logger) charts.Local {
	var remote fred.Remote = fred.Mirror{Dir: cfg.DataDir}
	if cfg.FRED.APIKey != "" {
		remote = fred.NewClient(cfg.FRED.APIKey,
			fred.WithBaseURL(cfg.FRED.BaseURL),
			fred.WithTimeout(cfg.FRED.Timeout()),
			fred.WithUserAgent(userAgent),
		)
	} else {
		log.Warn(ctx, "no FRED api key; reading remote series from data dir", logger.String("data_dir", cfg.DataDir))
	}
	return charts.Local{Path: cfg.SourcePath, SkipRows: cfg.PanelSkipRows, Remote: remote}
}

func buildRenderers(formats []string) ([]presenter.Renderer, error) {
	out := make([]presenter.Renderer, 0, len(formats))
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "png":
			out = append(out, presenter.PNGRenderer{})
		case "xlsx":
			out = append(out, presenter.XLSXRenderer{})
		default:
			return nil, fmt.Errorf("unknown render format %q", f)
		}
	}
	return out, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
