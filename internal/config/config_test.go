package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8000", cfg.ForecastAPIURL)
	assert.Empty(t, cfg.ForecastAPIToken)
	assert.Equal(t, 30*time.Second, cfg.ForecastAPITimeout)
	assert.Equal(t, "Arq_Entrada", cfg.InputDir)
	assert.Equal(t, "Arq_Saida", cfg.OutputDir)
	assert.Equal(t, []string{"ECMWF", "ETA40", "GEFS"}, cfg.RawModels)
	assert.Equal(t, "-REMVIES-ONS", cfg.RawModelSuffix)
	assert.Equal(t, "PMEDIA", cfg.GridFilePrefix)
	assert.Equal(t, "PMEDIA-ONS", cfg.GridModelName)
	assert.Equal(t, 14, cfg.GridHorizon)
	assert.Equal(t, []domain.BlendPair{
		{Source: "GEFS-ONS", Output: "PCONJUNTO-ONS"},
		{Source: "ECMWF-ONS", Output: "PCONJUNTO2-ONS"},
	}, cfg.BlendPairs)
	assert.Equal(t, time.Thursday, cfg.CutoffWeekday)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "rainfall-forecast-batches", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FORECAST_API_URL", "https://forecast.example.com/")
	t.Setenv("FORECAST_API_TOKEN", "secret")
	t.Setenv("FORECAST_API_TIMEOUT", "5s")
	t.Setenv("INPUT_DIR", "/data/in")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("RAW_MODELS", "ECMWF, GEFS")
	t.Setenv("RAW_MODEL_SUFFIX", "-BC")
	t.Setenv("GRID_FILE_PREFIX", "PMED")
	t.Setenv("GRID_MODEL_NAME", "PMED-X")
	t.Setenv("GRID_HORIZON_DAYS", "10")
	t.Setenv("BLEND_PAIRS", "ECMWF-ONS:MIX-ONS")
	t.Setenv("CUTOFF_WEEKDAY", "Friday")
	t.Setenv("RUN_TIMEZONE", "UTC")
	t.Setenv("WORKERS", "8")
	t.Setenv("RUN_INTERVAL", "15m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://forecast.example.com", cfg.ForecastAPIURL)
	assert.Equal(t, "secret", cfg.ForecastAPIToken)
	assert.Equal(t, 5*time.Second, cfg.ForecastAPITimeout)
	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, []string{"ECMWF", "GEFS"}, cfg.RawModels)
	assert.Equal(t, "-BC", cfg.RawModelSuffix)
	assert.Equal(t, "PMED", cfg.GridFilePrefix)
	assert.Equal(t, "PMED-X", cfg.GridModelName)
	assert.Equal(t, 10, cfg.GridHorizon)
	assert.Equal(t, []domain.BlendPair{{Source: "ECMWF-ONS", Output: "MIX-ONS"}}, cfg.BlendPairs)
	assert.Equal(t, time.Friday, cfg.CutoffWeekday)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
}

func TestLoad_InvalidSettings(t *testing.T) {
	cases := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"FORECAST_API_TIMEOUT", "-1s", "FORECAST_API_TIMEOUT"},
		{"RUN_INTERVAL", "0s", "RUN_INTERVAL"},
		{"GRID_HORIZON_DAYS", "0", "GRID_HORIZON_DAYS"},
		{"WORKERS", "many", "WORKERS"},
		{"CUTOFF_WEEKDAY", "quinta", "CUTOFF_WEEKDAY"},
		{"RUN_TIMEZONE", "Mars/Olympus", "RUN_TIMEZONE"},
		{"BLEND_PAIRS", "GEFS-ONS", "BLEND_PAIRS"},
		{"BLEND_PAIRS", "A:B,C:B", "listed twice"},
		{"BLEND_PAIRS", "A:A", "must differ"},
		{"BLEND_PAIRS", "GEFS-ONS:PMEDIA-ONS", "collides"},
		{"RAW_MODELS", " , ", "RAW_MODELS"},
		{"KAFKA_ENABLED", "true", "KAFKA_BROKERS"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestParseBlendPairs_Empty(t *testing.T) {
	pairs, err := ParseBlendPairs("")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestLoad_SingleBrokerEnablesKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker:9092"}, cfg.KafkaBrokers)
}
