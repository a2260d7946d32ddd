// Command rainetl publishes rainfall forecasts to the forecast service.
//
// Usage:
//
//	rainetl process-input  [YYYY-MM-DD]
//	rainetl process-output [YYYY-MM-DD]
//	rainetl serve
//
// The run date defaults to today in RUN_TIMEZONE.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/rainfall-forecast-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/rainfall-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/adapter/registry"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/config"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/observability"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const usage = "usage: rainetl process-input|process-output [YYYY-MM-DD] | serve"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := registry.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPIToken, cfg.ForecastAPITimeout, logger, metrics)

	var notifier pipeline.BatchNotifier
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
		logger.Info("batch notifications enabled", "topic", cfg.KafkaTopic)
	}

	runner := pipeline.New(client, notifier, pipeline.SettingsFromConfig(cfg), logger, metrics)

	switch cmd := args[0]; cmd {
	case "process-input", "process-output":
		runDate, err := parseRunDate(args[1:], cfg.Location)
		if err != nil {
			logger.Error("invalid arguments", "error", err)
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		if cmd == "process-input" {
			err = runner.ProcessInput(runDate)
		} else {
			err = runner.ProcessOutput(ctx, runDate)
		}
		if err != nil {
			logger.Error(cmd+" failed", "run_date", runDate.Format(domain.DateLayout), "error", err)
			return 1
		}
		return 0

	case "serve":
		if len(args) > 1 {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		return serve(ctx, cfg, runner, logger)

	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}

// parseRunDate reads the optional YYYY-MM-DD argument.
func parseRunDate(args []string, loc *time.Location) (time.Time, error) {
	switch len(args) {
	case 0:
		return domain.Today(loc), nil
	case 1:
		t, err := time.Parse(domain.DateLayout, args[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("run date %q: want YYYY-MM-DD", args[0])
		}
		return t, nil
	default:
		return time.Time{}, errors.New("too many arguments")
	}
}

func serve(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, logger *slog.Logger) int {
	scheduler := pipeline.NewScheduler(runner, nil, cfg.RunInterval, cfg.Location, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, scheduler, prometheus.DefaultGatherer, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case err := <-done:
		if err != nil {
			logger.Error("scheduler error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
	return 0
}
