package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
)

// PrepareInput readies the exchange directories for a run: it empties the
// output directory, checks that every raw model file and the observed file
// are present, and writes the run date file.
func (l Layout) PrepareInput(runDate time.Time, rawModels []string, logger *slog.Logger) error {
	if err := l.ClearOutput(); err != nil {
		return err
	}
	logger.Info("output directory cleared", "dir", l.OutputDir)

	if err := l.VerifyInputs(runDate, rawModels); err != nil {
		return err
	}
	logger.Info("input files verified", "run_date", runDate.Format(domain.DateLayout), "models", rawModels)

	if err := l.WriteDateFile(runDate); err != nil {
		return err
	}
	logger.Info("run date file written", "file", l.DateFile())
	return nil
}

// ClearOutput removes everything inside the output directory, creating it if needed.
func (l Layout) ClearOutput() error {
	entries, err := os.ReadDir(l.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(l.OutputDir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("clear output: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.OutputDir, e.Name())); err != nil {
			return fmt.Errorf("clear output: %w", err)
		}
	}
	return nil
}

// VerifyInputs reports every expected input file that is missing.
func (l Layout) VerifyInputs(runDate time.Time, rawModels []string) error {
	expected := make([]string, 0, len(rawModels)+1)
	for _, m := range rawModels {
		expected = append(expected, l.RawInput(m, runDate))
	}
	expected = append(expected, l.ObservedInput(runDate))

	var errs []error
	for _, path := range expected {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("file %s in %s: %w", filepath.Base(path), filepath.Dir(path), domain.ErrNotFound))
				continue
			}
			errs = append(errs, fmt.Errorf("stat %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// WriteDateFile writes the run date as dd/mm/yyyy.
func (l Layout) WriteDateFile(runDate time.Time) error {
	if err := os.MkdirAll(l.InputDir, 0o755); err != nil {
		return fmt.Errorf("write date file: %w", err)
	}
	content := runDate.Format(slashDate) + "\n"
	if err := os.WriteFile(l.DateFile(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write date file: %w", err)
	}
	return nil
}
