package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // RUN_TIMEZONE must resolve on minimal images

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Forecast service.
	ForecastAPIURL     string
	ForecastAPIToken   string
	ForecastAPITimeout time.Duration

	// Model exchange directories.
	InputDir  string
	OutputDir string

	RawModels      []string
	RawModelSuffix string
	GridFilePrefix string
	GridModelName  string
	GridHorizon    int
	BlendPairs     []domain.BlendPair
	CutoffWeekday  time.Weekday
	Location       *time.Location
	Workers        int
	RunInterval    time.Duration

	// Batch notifications.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
// Every validation failure wraps domain.ErrConfiguration.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("FORECAST_API_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	runInterval, err := parsePositiveDuration("RUN_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	horizon, err := parsePositiveInt("GRID_HORIZON_DAYS", "14")
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("WORKERS", "4")
	if err != nil {
		return nil, err
	}

	weekday, err := domain.ParseWeekday(sharedcfg.EnvOrDefault("CUTOFF_WEEKDAY", "thursday"))
	if err != nil {
		return nil, errors.New("invalid CUTOFF_WEEKDAY")
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("RUN_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_TIMEZONE: %w", err)
	}

	pairs, err := ParseBlendPairs(sharedcfg.EnvOrDefault("BLEND_PAIRS", "GEFS-ONS:PCONJUNTO-ONS,ECMWF-ONS:PCONJUNTO2-ONS"))
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ForecastAPIURL:     strings.TrimRight(sharedcfg.EnvOrDefault("FORECAST_API_URL", "http://localhost:8000"), "/"),
		ForecastAPIToken:   os.Getenv("FORECAST_API_TOKEN"),
		ForecastAPITimeout: apiTimeout,

		InputDir:  sharedcfg.EnvOrDefault("INPUT_DIR", "Arq_Entrada"),
		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "Arq_Saida"),

		RawModels:      splitList(sharedcfg.EnvOrDefault("RAW_MODELS", "ECMWF,ETA40,GEFS")),
		RawModelSuffix: sharedcfg.EnvOrDefault("RAW_MODEL_SUFFIX", "-REMVIES-ONS"),
		GridFilePrefix: sharedcfg.EnvOrDefault("GRID_FILE_PREFIX", "PMEDIA"),
		GridModelName:  sharedcfg.EnvOrDefault("GRID_MODEL_NAME", "PMEDIA-ONS"),
		GridHorizon:    horizon,
		BlendPairs:     pairs,
		CutoffWeekday:  weekday,
		Location:       loc,
		Workers:        workers,
		RunInterval:    runInterval,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "rainfall-forecast-batches"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.ForecastAPIURL == "" {
		return nil, errors.New("FORECAST_API_URL is required")
	}
	if len(cfg.RawModels) == 0 {
		return nil, errors.New("RAW_MODELS is required")
	}
	if cfg.GridModelName == "" {
		return nil, errors.New("GRID_MODEL_NAME is required")
	}
	for _, p := range cfg.BlendPairs {
		if p.Output == cfg.GridModelName {
			return nil, fmt.Errorf("BLEND_PAIRS output %q collides with GRID_MODEL_NAME", p.Output)
		}
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

// ParseBlendPairs parses "source:output" pairs separated by commas.
func ParseBlendPairs(s string) ([]domain.BlendPair, error) {
	var pairs []domain.BlendPair
	outputs := make(map[string]bool)
	for _, item := range splitList(s) {
		source, output, ok := strings.Cut(item, ":")
		source, output = strings.TrimSpace(source), strings.TrimSpace(output)
		if !ok || source == "" || output == "" {
			return nil, fmt.Errorf("invalid BLEND_PAIRS entry %q, want source:output", item)
		}
		if source == output {
			return nil, fmt.Errorf("invalid BLEND_PAIRS entry %q, output must differ from source", item)
		}
		if outputs[output] {
			return nil, fmt.Errorf("invalid BLEND_PAIRS: output %q listed twice", output)
		}
		outputs[output] = true
		pairs = append(pairs, domain.BlendPair{Source: source, Output: output})
	}
	return pairs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
