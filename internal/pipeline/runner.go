package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/config"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/layout"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// CatalogSource lists the registered sub-basins.
type CatalogSource interface {
	FetchSubBasins(ctx context.Context) ([]domain.SubBasin, error)
}

// ForecastPublisher stores a forecast batch with the forecast service.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, records []domain.ForecastRecord) error
}

// ForecastFetcher retrieves a previously published forecast series.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, model string, runDate time.Time) ([]domain.ForecastRecord, error)
}

// ArchiveUploader sends a packaged file archive to the forecast service.
type ArchiveUploader interface {
	UploadArchive(ctx context.Context, path string, meta domain.ArchiveMeta) error
}

// ForecastService is everything the Runner needs from the forecast service.
type ForecastService interface {
	CatalogSource
	ForecastPublisher
	ForecastFetcher
	ArchiveUploader
}

// BatchNotifier announces published batches and archives.
type BatchNotifier interface {
	NotifyBatch(ctx context.Context, event domain.BatchEvent) error
}

// Unit kinds, also used as metric labels.
const (
	UnitRaw   = "raw"
	UnitGrid  = "grid"
	UnitBlend = "blend"
)

// UnitError identifies the unit of work that failed.
type UnitError struct {
	Unit    string
	Model   string
	RunDate time.Time
	Err     error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s unit %s run %s: %v", e.Unit, e.Model, e.RunDate.Format(domain.DateLayout), e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Settings controls which models a run processes and how.
type Settings struct {
	Layout         layout.Layout
	RawModels      []string
	RawModelSuffix string
	GridFilePrefix string
	GridModelName  string
	GridHorizon    int
	BlendPairs     []domain.BlendPair
	CutoffWeekday  time.Weekday
	Workers        int
}

// RawModelName is the published label of a bias-corrected source model.
func (s Settings) RawModelName(model string) string {
	return model + s.RawModelSuffix
}

// SettingsFromConfig derives run settings from the service configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Layout:         layout.New(cfg.InputDir, cfg.OutputDir),
		RawModels:      cfg.RawModels,
		RawModelSuffix: cfg.RawModelSuffix,
		GridFilePrefix: cfg.GridFilePrefix,
		GridModelName:  cfg.GridModelName,
		GridHorizon:    cfg.GridHorizon,
		BlendPairs:     cfg.BlendPairs,
		CutoffWeekday:  cfg.CutoffWeekday,
		Workers:        cfg.Workers,
	}
}

// Runner executes the units of work of one forecast run.
type Runner struct {
	service  ForecastService
	notifier BatchNotifier
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Runner. notifier may be nil.
func New(service ForecastService, notifier BatchNotifier, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	return &Runner{
		service:  service,
		notifier: notifier,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// ProcessInput prepares the exchange directories for the bias-correction step.
func (r *Runner) ProcessInput(runDate time.Time) error {
	return r.settings.Layout.PrepareInput(runDate, r.settings.RawModels, r.logger)
}

// ProcessOutput publishes every model output of runDate. Raw models and the
// grid mean run independently; blends run after a successful grid mean and
// are skipped otherwise. Unit failures do not stop sibling units and are
// returned together as *UnitError values.
func (r *Runner) ProcessOutput(ctx context.Context, runDate time.Time) error {
	runDate = domain.Midnight(runDate)
	start := time.Now()
	r.metrics.RunInProgress.Set(1)
	defer r.metrics.RunInProgress.Set(0)
	defer func() { r.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	log := r.logger.With("run_date", runDate.Format(domain.DateLayout))
	log.Info("output run started")

	basins, err := r.service.FetchSubBasins(ctx)
	if err != nil {
		return fmt.Errorf("load sub-basin catalog: %w", err)
	}
	catalog, err := domain.NewCatalog(basins)
	if err != nil {
		return fmt.Errorf("load sub-basin catalog: %w", err)
	}
	log.Info("sub-basin catalog loaded", "sub_basins", catalog.Len())

	var (
		mu       sync.Mutex
		failures []error
		gridMean []domain.ForecastRecord
		gridOK   bool
	)
	record := func(unit, model string, err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			log.Error("unit failed", "unit", unit, "model", model, "error", err)
			mu.Lock()
			failures = append(failures, &UnitError{Unit: unit, Model: model, RunDate: runDate, Err: err})
			mu.Unlock()
		}
		r.metrics.UnitOutcomes.WithLabelValues(unit, outcome).Inc()
	}

	var g errgroup.Group
	g.SetLimit(r.settings.Workers)
	for _, model := range r.settings.RawModels {
		g.Go(func() error {
			record(UnitRaw, r.settings.RawModelName(model), r.processRaw(ctx, catalog, model, runDate))
			return nil
		})
	}
	g.Go(func() error {
		records, err := r.processGrid(ctx, catalog, runDate)
		record(UnitGrid, r.settings.GridModelName, err)
		if records != nil {
			mu.Lock()
			gridMean, gridOK = records, true
			mu.Unlock()
		}
		return nil
	})
	_ = g.Wait()

	if gridOK {
		cutoff := domain.CutoffDate(runDate, r.settings.CutoffWeekday)
		for _, pair := range r.settings.BlendPairs {
			record(UnitBlend, pair.Output, r.processBlend(ctx, catalog, pair, gridMean, runDate, cutoff))
		}
	} else {
		for _, pair := range r.settings.BlendPairs {
			log.Warn("blend skipped without grid mean", "model", pair.Output)
			r.metrics.UnitOutcomes.WithLabelValues(UnitBlend, "skipped").Inc()
		}
	}

	if err := errors.Join(failures...); err != nil {
		log.Error("output run finished with failures", "failed_units", len(failures), "duration", time.Since(start))
		return err
	}
	r.metrics.LastSuccessfulRun.Set(float64(domain.Now().Unix()))
	log.Info("output run finished", "duration", time.Since(start))
	return nil
}
