// Command genmock writes synthetic bias-corrected basin tables and grid-mean
// daily files for a sub-basin catalog, so the output step can run locally
// against a forecast service double. It decodes the files it wrote with the
// domain package to confirm they parse as the pipeline will read them.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -catalog data/mock/subbacias.json \
//	  -out Arq_Saida \
//	  -date 2024-06-03
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/layout"
)

// catalogEntry mirrors the forecast service's sub-basin listing.
type catalogEntry struct {
	ID   int     `json:"id"`
	Name string  `json:"nome"`
	Lon  float64 `json:"vl_lon"`
	Lat  float64 `json:"vl_lat"`
}

type options struct {
	catalog string
	out     string
	runDate time.Time
	models  []string
	prefix  string
	horizon int
	days    int
	seed    uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	catalogPath := flag.String("catalog", "", "JSON sub-basin catalog ([{id,nome,vl_lon,vl_lat}])")
	out := flag.String("out", "Arq_Saida", "output directory")
	date := flag.String("date", "", "run date YYYY-MM-DD")
	models := flag.String("models", "ECMWF,ETA40,GEFS", "bias-corrected models to generate")
	prefix := flag.String("prefix", "PMEDIA", "grid-mean file prefix")
	horizon := flag.Int("horizon", 14, "grid-mean days")
	days := flag.Int("days", 10, "forecast days per basin table")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *catalogPath == "" || *date == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -catalog, -date")
	}
	runDate, err := time.Parse(domain.DateLayout, *date)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}

	opts := options{
		catalog: *catalogPath,
		out:     *out,
		runDate: runDate,
		models:  strings.Split(*models, ","),
		prefix:  *prefix,
		horizon: *horizon,
		days:    *days,
		seed:    *seed,
	}
	return generate(opts)
}

func generate(opts options) error {
	catalog, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}
	l := layout.New("", opts.out)
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))

	for _, m := range opts.models {
		path := l.BiasCorrected(m)
		if err := os.WriteFile(path, []byte(basinTable(catalog, opts.days, rng)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := verifyBasinTable(catalog, path, m, opts.runDate); err != nil {
			return err
		}
	}

	for i, path := range l.DailyFiles(opts.prefix, opts.runDate, opts.horizon) {
		if err := os.WriteFile(path, []byte(gridDay(catalog, rng)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := verifyGridDay(path); err != nil {
			return fmt.Errorf("day %d: %w", i+1, err)
		}
	}
	log.Printf("wrote %d grid-mean days with prefix %s", opts.horizon, opts.prefix)
	return nil
}

func loadCatalog(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	basins := make([]domain.SubBasin, len(entries))
	for i, e := range entries {
		basins[i] = domain.SubBasin{ID: e.ID, Name: e.Name, Longitude: e.Lon, Latitude: e.Lat}
	}
	return domain.NewCatalog(basins)
}

// rain draws a skewed daily total in mm: most days are dry or light.
func rain(rng *rand.Rand) float64 {
	v := rng.ExpFloat64() * 6
	return float64(int(v*10)) / 10
}

// basinTable renders name, lon, lat and one column per day with fixed widths.
func basinTable(catalog *domain.Catalog, days int, rng *rand.Rand) string {
	width := 1
	for _, b := range catalog.SubBasins() {
		width = max(width, len(b.Name))
	}

	var sb strings.Builder
	for _, b := range catalog.SubBasins() {
		fmt.Fprintf(&sb, "%-*s %8.2f %8.2f", width, strings.ReplaceAll(b.Name, " ", "_"), b.Longitude, b.Latitude)
		for range days {
			fmt.Fprintf(&sb, " %6.1f", rain(rng))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func gridDay(catalog *domain.Catalog, rng *rand.Rand) string {
	var sb strings.Builder
	for _, b := range catalog.SubBasins() {
		fmt.Fprintf(&sb, "%8.2f %8.2f %6.1f\n", b.Longitude, b.Latitude, rain(rng))
	}
	return sb.String()
}

func verifyBasinTable(catalog *domain.Catalog, path, model string, runDate time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := domain.NewBasinDecoder(catalog).Decode(f, path, model, runDate)
	if err != nil {
		return fmt.Errorf("generated table does not decode: %w", err)
	}
	log.Printf("%s: %d rows, %d days, %d records, %d unmatched",
		path, result.Rows, result.Horizon, len(result.Records), len(result.Unmatched))
	return nil
}

func verifyGridDay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := domain.ParseGridPoints(f, path); err != nil {
		return fmt.Errorf("generated grid does not parse: %w", err)
	}
	return nil
}
