package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/archive"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// processRaw decodes one bias-corrected basin table and publishes it.
func (r *Runner) processRaw(ctx context.Context, catalog *domain.Catalog, model string, runDate time.Time) error {
	name := r.settings.RawModelName(model)
	path := r.settings.Layout.BiasCorrected(model)
	log := r.logger.With("model", name, "run_date", runDate.Format(domain.DateLayout), "file", filepath.Base(path))

	f, err := os.Open(path)
	if err != nil {
		r.metrics.FilesDecoded.WithLabelValues("basin", "error").Inc()
		return openError(path, err)
	}
	defer f.Close()

	result, err := domain.NewBasinDecoder(catalog).Decode(f, path, name, runDate)
	if err != nil {
		r.metrics.FilesDecoded.WithLabelValues("basin", "error").Inc()
		return err
	}
	r.metrics.FilesDecoded.WithLabelValues("basin", "success").Inc()

	if n := len(result.Unmatched); n > 0 {
		r.metrics.LookupMisses.WithLabelValues(name, "name").Add(float64(n))
		log.Warn("basin names not in catalog", "unmatched", n, "names", strings.Join(result.Unmatched, ","))
	}
	log.Info("basin table decoded", "rows", result.Rows, "horizon", result.Horizon, "records", len(result.Records))

	return r.publish(ctx, name, runDate, result.Records)
}

// processGrid aggregates the daily grid-mean files, publishes the series, and
// uploads the daily files. It returns the series for blending whenever the
// publish succeeded, together with any upload error.
func (r *Runner) processGrid(ctx context.Context, catalog *domain.Catalog, runDate time.Time) ([]domain.ForecastRecord, error) {
	name := r.settings.GridModelName
	log := r.logger.With("model", name, "run_date", runDate.Format(domain.DateLayout))

	files := r.settings.Layout.DailyFiles(r.settings.GridFilePrefix, runDate, r.settings.GridHorizon)
	days, err := r.readGridDays(ctx, files)
	if err != nil {
		return nil, err
	}

	result, err := domain.NewGridAggregator(catalog, name).Aggregate(days, runDate, r.settings.GridHorizon)
	if err != nil {
		return nil, err
	}
	if result.Unmatched > 0 {
		r.metrics.LookupMisses.WithLabelValues(name, "coordinates").Add(float64(result.Unmatched))
		log.Warn("grid points not in catalog", "unmatched", result.Unmatched, "points", result.Points)
	}
	log.Info("grid mean aggregated", "days", result.Days, "records", len(result.Records))

	if err := r.publish(ctx, name, runDate, result.Records); err != nil {
		return nil, err
	}
	// Blends use the published series even if the upload fails.
	return result.Records, r.upload(ctx, name, runDate, files)
}

// readGridDays parses the daily files concurrently. Any missing or malformed
// day fails the whole series.
func (r *Runner) readGridDays(ctx context.Context, files []string) ([]domain.GridDay, error) {
	days := make([]domain.GridDay, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points, err := readGridFile(path)
			if err != nil {
				r.metrics.FilesDecoded.WithLabelValues("grid", "error").Inc()
				return fmt.Errorf("grid-mean day %d of %d: %w", i+1, len(files), err)
			}
			r.metrics.FilesDecoded.WithLabelValues("grid", "success").Inc()
			days[i] = domain.GridDay{Offset: i + 1, Source: path, Points: points}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return days, nil
}

func readGridFile(path string) ([]domain.GridPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()
	return domain.ParseGridPoints(f, path)
}

// processBlend combines a single-model series with the grid mean, publishes
// the derived model, and uploads its daily files.
func (r *Runner) processBlend(ctx context.Context, catalog *domain.Catalog, pair domain.BlendPair, gridMean []domain.ForecastRecord, runDate, cutoff time.Time) error {
	log := r.logger.With("model", pair.Output, "source", pair.Source, "run_date", runDate.Format(domain.DateLayout))

	source, err := r.service.FetchForecast(ctx, pair.Source, runDate)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pair.Source, err)
	}

	result := domain.Blend(source, gridMean, cutoff, runDate, pair.Output)
	if n := len(result.Uncovered); n > 0 {
		r.metrics.UncoveredSubBasins.WithLabelValues(pair.Output).Add(float64(n))
		log.Warn("source series leaves gaps before cutoff", "uncovered", n, "cutoff", cutoff.Format(domain.DateLayout))
	}
	log.Info("blend built", "from_source", result.FromSource, "from_grid", result.FromGrid,
		"cutoff", cutoff.Format(domain.DateLayout))

	if err := r.publish(ctx, pair.Output, runDate, result.Records); err != nil {
		return err
	}

	files, err := archive.WriteDerivedFiles(r.settings.Layout, pair.Output, runDate, result.Records, catalog)
	if err != nil {
		return err
	}
	return r.upload(ctx, pair.Output, runDate, files)
}

// publish validates and posts one batch, then announces it.
func (r *Runner) publish(ctx context.Context, model string, runDate time.Time, records []domain.ForecastRecord) error {
	if err := domain.ValidateBatch(records); err != nil {
		return fmt.Errorf("%s batch: %w", model, err)
	}
	if err := r.service.PublishForecast(ctx, records); err != nil {
		return fmt.Errorf("publish %s: %w", model, err)
	}
	r.metrics.RecordsPublished.WithLabelValues(model).Add(float64(len(records)))
	r.logger.Info("forecast published", "model", model, "run_date", runDate.Format(domain.DateLayout), "records", len(records))

	r.notify(ctx, domain.NewForecastEvent(model, runDate, len(records)))
	return nil
}

// upload packages files into the run's archive for label and sends it.
func (r *Runner) upload(ctx context.Context, label string, runDate time.Time, files []string) error {
	path := r.settings.Layout.Archive(label, runDate)
	if err := archive.Zip(path, files); err != nil {
		return err
	}
	meta := domain.ArchiveMeta{ModelName: label, RunTimestamp: runDate}
	if err := r.service.UploadArchive(ctx, path, meta); err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	r.notify(ctx, domain.NewArchiveEvent(meta, filepath.Base(path)))
	return nil
}

// notify sends event if a notifier is set. Failures are logged and counted only.
func (r *Runner) notify(ctx context.Context, event domain.BatchEvent) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyBatch(ctx, event); err != nil {
		r.metrics.NotificationErrors.Inc()
		r.logger.Warn("batch notification failed", "model", event.ModelName, "kind", event.Kind, "error", err)
	}
}

func openError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
