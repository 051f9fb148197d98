package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"worker/internal/backend"
	"worker/internal/common/fsutil"
	"worker/internal/config"
	"worker/internal/endpoint"
	"worker/internal/httpapi"
	"worker/internal/logging"
	"worker/internal/registry"
	"worker/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

type flagValues struct {
	configPath     string
	addr           string
	modelServerURL string
	modelLog       string
	allowParallel  bool
	benchmarkRuns  int
	healthcheck    string
	logLevel       string
	logFormat      string
	httpLogLevel   string
	corsOrigins    string
	telemetrySink  string
	telemetryURL   string
	workerID       string
}

func newRootCmd() *cobra.Command {
	var fv flagValues
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Inference worker sidecar for a local model server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &fv, os.Getenv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, fv.httpLogLevel)
		},
	}
	f := root.Flags()
	f.StringVarP(&fv.configPath, "config", "c", "", "Config file (.yaml, .yml, .json or .toml)")
	f.StringVar(&fv.addr, "addr", "", "HTTP listen address (defaults WORKER_ADDR or :3000)")
	f.StringVar(&fv.modelServerURL, "model-server-url", "", "Model server base URL (defaults MODEL_SERVER_URL or http://127.0.0.1:5001)")
	f.StringVar(&fv.modelLog, "model-log", "", "Model server log file to tail (defaults MODEL_LOG)")
	f.BoolVar(&fv.allowParallel, "allow-parallel", false, "Forward requests concurrently instead of one at a time")
	f.IntVar(&fv.benchmarkRuns, "benchmark-runs", config.DefaultBenchmarkRuns, "Benchmark requests sent once the model is loaded (0 disables)")
	f.StringVar(&fv.healthcheck, "healthcheck-path", "", "Model server path proxied by GET /healthcheck")
	f.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	f.StringVar(&fv.logFormat, "log-format", "", "Log format: console|json")
	f.StringVar(&fv.httpLogLevel, "http-log-level", "", "Default per-request log level: off|error|info|debug")
	f.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	f.StringVar(&fv.telemetrySink, "telemetry-sink", "", "Telemetry sink: none|http|nats")
	f.StringVar(&fv.telemetryURL, "telemetry-url", "", "Autoscaler URL or NATS server URL")
	f.StringVar(&fv.workerID, "worker-id", "", "Worker id stamped on telemetry reports")
	return root
}

// resolveConfig layers defaults, the config file, the environment and the
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, fv *flagValues, getenv func(string) string) (config.Config, error) {
	cfg := config.Defaults()
	if fv.configPath != "" {
		fileCfg, err := config.Load(fv.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := config.FromEnv(getenv)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(envCfg)

	var over config.Config
	changed := cmd.Flags().Changed
	over.Addr = fv.addr
	over.ModelServerURL = fv.modelServerURL
	over.ModelLog = fv.modelLog
	over.HealthcheckPath = fv.healthcheck
	over.Logging.Level = fv.logLevel
	over.Logging.Format = fv.logFormat
	over.Telemetry.Sink = fv.telemetrySink
	over.Telemetry.URL = fv.telemetryURL
	over.Telemetry.WorkerID = fv.workerID
	if changed("allow-parallel") {
		over.AllowParallelRequests = &fv.allowParallel
	}
	if changed("benchmark-runs") {
		over.BenchmarkRuns = &fv.benchmarkRuns
	}
	if origins := splitCSV(fv.corsOrigins); len(origins) > 0 {
		over.CORS = config.CORS{Enabled: true, Origins: origins}
	}
	cfg = cfg.Merge(over)
	if cfg.Telemetry.URL != "" && (cfg.Telemetry.Sink == "" || cfg.Telemetry.Sink == "none") && !changed("telemetry-sink") {
		cfg.Telemetry.Sink = "http"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.ModelLog, err = fsutil.ExpandHome(cfg.ModelLog); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, httpLogLevel string) error {
	logger, closeLog, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := cfg.LogRules()
	if err != nil {
		return err
	}
	tts := endpoint.TTSHandler{Runs: cfg.Runs()}
	reg, err := registry.New(tts.Endpoint(), tts)
	if err != nil {
		return err
	}

	b := backend.NewWithConfig(backend.Config{
		ModelServerURL:        cfg.ModelServerURL,
		ModelLog:              cfg.ModelLog,
		AllowParallelRequests: cfg.ParallelAllowed(),
		LogRules:              rules,
		UpstreamTimeout:       cfg.UpstreamTimeout.D(),
		LogPollInterval:       cfg.LogPollInterval.D(),
		LogOpenTimeout:        cfg.LogOpenTimeout.D(),
		Publisher:             backend.NewMemoryPublisher(0),
		Logger:                &logger,
	})
	if err := b.SanityCheck(); err != nil {
		return err
	}

	sink, err := telemetry.NewSink(telemetry.SinkConfig{
		Kind:    cfg.Telemetry.Sink,
		URL:     cfg.Telemetry.URL,
		Subject: cfg.Telemetry.Subject,
	})
	if err != nil {
		return err
	}
	reporter := telemetry.NewReporter(b, sink, telemetry.Options{
		WorkerID:     cfg.Telemetry.WorkerID,
		BusyInterval: cfg.Telemetry.BusyInterval.D(),
		IdleInterval: cfg.Telemetry.IdleInterval.D(),
		Logger:       &logger,
	})
	b.SetRecorder(reporter)

	httpapi.SetLogger(logger)
	if httpLogLevel != "" {
		httpapi.SetDefaultLogLevel(httpLogLevel)
	}
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetHealthcheckPath(cfg.HealthcheckPath)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(b, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("model_server_url", cfg.ModelServerURL).
		Str("model_log", cfg.ModelLog).
		Str("policy", b.Policy().String()).
		Str("worker_id", reporter.WorkerID()).
		Msg("worker starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.Monitor().Run(gctx); err != nil {
			return fmt.Errorf("log monitor: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("graceful shutdown")
		}
		return nil
	})
	g.Go(func() error { return reporter.Run(gctx) })
	if bh, ok := reg.Benchmark(); ok {
		runner := backend.NewBenchmarkRunner(b, bh, cfg.BenchmarkInterval.D())
		g.Go(func() error {
			if err := runner.Start(gctx); err != nil {
				logger.Warn().Err(err).Msg("benchmark stopped")
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info().Err(err).Msg("worker stopped")
	return err
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
