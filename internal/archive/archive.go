// Package archive writes gridded forecast files and packages them for upload.
package archive

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/layout"
)

// WriteGridFile writes one "lon lat rain" line per point.
func WriteGridFile(path string, points []domain.GridPoint) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, p := range points {
		line := formatFloat(p.Lon) + " " + formatFloat(p.Lat) + " " + formatFloat(p.RainValue) + "\n"
		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteDerivedFiles writes one daily grid file per forecast date of records,
// placing each value at its sub-basin's catalog coordinates. Records of
// sub-basins missing from the catalog are skipped. It returns the written
// paths in date order.
func WriteDerivedFiles(l layout.Layout, label string, runDate time.Time, records []domain.ForecastRecord, catalog *domain.Catalog) ([]string, error) {
	byDate := make(map[time.Time][]domain.GridPoint)
	for _, r := range records {
		b, ok := catalog.SubBasin(r.SubBasinID)
		if !ok {
			continue
		}
		d := domain.Midnight(r.ForecastDate)
		byDate[d] = append(byDate[d], domain.GridPoint{Lon: b.Longitude, Lat: b.Latitude, RainValue: r.RainValue})
	}

	var paths []string
	for _, d := range domain.ForecastDates(records) {
		points, ok := byDate[d]
		if !ok {
			continue
		}
		path := l.DailyFile(label, runDate, d)
		if err := WriteGridFile(path, points); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Zip packages files into a deflate-compressed archive at dst, storing each
// under its base name.
func Zip(dst string, files []string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive %s: %w", dst, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := addFile(zw, path); err != nil {
			_ = zw.Close()
			return fmt.Errorf("archive %s: %w", dst, err)
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.Base(path), Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
