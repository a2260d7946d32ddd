// Package layout knows where model files live in the exchange directories
// and how they are named.
package layout

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
)

const (
	shortDate = "020106"     // ddmmyy
	longDate  = "02012006"   // ddmmyyyy
	slashDate = "02/01/2006" // dd/mm/yyyy

	observedDir = "Observado"
	dateFile    = "data.txt"
)

// Layout resolves file paths inside the input and output directories.
type Layout struct {
	InputDir  string
	OutputDir string
}

// New creates a Layout over the given directories.
func New(inputDir, outputDir string) Layout {
	return Layout{InputDir: inputDir, OutputDir: outputDir}
}

// RawInput is the raw model file expected for a run, e.g. Arq_Entrada/GEFS/GEFS_m_030624.dat.
func (l Layout) RawInput(model string, runDate time.Time) string {
	name := fmt.Sprintf("%s_m_%s.dat", model, runDate.Format(shortDate))
	return filepath.Join(l.InputDir, model, name)
}

// ObservedInput is the satellite precipitation file of the day before the run.
func (l Layout) ObservedInput(runDate time.Time) string {
	name := fmt.Sprintf("psat_%s.txt", runDate.AddDate(0, 0, -1).Format(longDate))
	return filepath.Join(l.InputDir, observedDir, name)
}

// DateFile holds the run date for the bias-correction step.
func (l Layout) DateFile() string {
	return filepath.Join(l.InputDir, dateFile)
}

// BiasCorrected is the bias-corrected basin table of a model, e.g. Arq_Saida/ECMWF_rem_vies.dat.
func (l Layout) BiasCorrected(model string) string {
	return filepath.Join(l.OutputDir, model+"_rem_vies.dat")
}

// DailyFile is one forecast day of a gridded series, e.g. Arq_Saida/PMEDIA_p030624a040624.dat.
func (l Layout) DailyFile(label string, runDate, forecastDate time.Time) string {
	name := fmt.Sprintf("%s_p%sa%s.dat", label, runDate.Format(shortDate), forecastDate.Format(shortDate))
	return filepath.Join(l.OutputDir, name)
}

// DailyFiles returns the files of forecast days 1..horizon, in order.
func (l Layout) DailyFiles(label string, runDate time.Time, horizon int) []string {
	files := make([]string, horizon)
	for i := range files {
		files[i] = l.DailyFile(label, runDate, runDate.AddDate(0, 0, i+1))
	}
	return files
}

// Archive is the zip uploaded for a label and run, e.g. Arq_Saida/PCONJUNTO-ONS_2024-06-03.zip.
func (l Layout) Archive(label string, runDate time.Time) string {
	return filepath.Join(l.OutputDir, fmt.Sprintf("%s_%s.zip", label, runDate.Format(domain.DateLayout)))
}
