//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/adapter/registry"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/config"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/layout"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/observability"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-rainfall-batches"

// TestKafkaWriter_NotifyBatch round-trips one forecast notification through Kafka.
func TestKafkaWriter_NotifyBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	event := domain.NewForecastEvent("GEFS-REMVIES-ONS", domain.Date(2024, 6, 3), 42)
	require.NoError(t, writer.NotifyBatch(ctx, event))

	n := readNotification(ctx, t, newConsumer(t, broker, testTopic))
	assert.Equal(t, "GEFS-REMVIES-ONS", n.Key)
	assert.Equal(t, event.ID, n.Headers["event_id"])
	assert.Equal(t, domain.BatchKindForecast, n.Headers["kind"])
	_, err := time.Parse(time.RFC3339, n.Headers["published_at"])
	require.NoError(t, err, "published_at should be RFC3339")

	assert.Equal(t, event.ID, n.Event.ID)
	assert.Equal(t, "2024-06-03", n.Event.RunDate)
	assert.Equal(t, 42, n.Event.Records)
}

// forecastServer is an in-memory stand-in for the forecast service.
type forecastServer struct {
	mu        sync.Mutex
	published map[string]int
	uploads   []string
}

func (s *forecastServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/rodadas/subbacias", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":10,"nome":"Grande","vl_lon":-44.25,"vl_lat":-21.75},
			{"id":11,"nome":"Paranaiba","vl_lon":-47.75,"vl_lat":-18.25}]`))
	})
	mux.HandleFunc("POST /api/v2/rodadas/chuva/previsao/modelos", func(w http.ResponseWriter, r *http.Request) {
		var rows []map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&rows)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.published[rows[0]["modelo"].(string)] += len(rows)
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/v2/rodadas/chuva/previsao", func(w http.ResponseWriter, r *http.Request) {
		model := r.URL.Query().Get("nome_modelo")
		var rows []string
		for _, id := range []int{10, 11} {
			for d := 4; d <= 6; d++ {
				rows = append(rows, fmt.Sprintf(
					`{"cd_subbacia":%d,"dt_prevista":"2024-06-0%d","vl_chuva":%d.5,"dt_rodada":"2024-06-03T00:00:00","modelo":%q}`,
					id, d, d, model))
			}
		}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	})
	mux.HandleFunc("POST /pluv/api/raw-rain-map/", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.uploads = append(s.uploads, r.FormValue("modelo"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

// TestOutputRunEndToEnd runs a full output step against an HTTP forecast
// service double and a real Kafka broker.
func TestOutputRunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	fs := &forecastServer{published: make(map[string]int)}
	srv := httptest.NewServer(fs.handler(t))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	l := layout.New(filepath.Join(dir, "in"), filepath.Join(dir, "out"))
	require.NoError(t, os.MkdirAll(l.OutputDir, 0o755))
	runDate := domain.Date(2024, 6, 3)

	table := "Grande        -44.25  -21.75    1.0    2.0    3.0\n" +
		"Paranaiba     -47.75  -18.25    4.0    5.0    6.0\n"
	require.NoError(t, os.WriteFile(l.BiasCorrected("GEFS"), []byte(table), 0o644))
	for i, path := range l.DailyFiles("PMEDIA", runDate, 3) {
		grid := fmt.Sprintf("  -44.25  -21.75 %6.1f\n  -47.75  -18.25 %6.1f\n", float64(i), float64(i+1))
		require.NoError(t, os.WriteFile(path, []byte(grid), 0o644))
	}

	metrics := observability.NewMetricsForTesting()
	client := registry.NewClient(srv.URL, "token", 5*time.Second, discardLogger(), metrics)
	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	runner := pipeline.New(client, writer, pipeline.Settings{
		Layout:         l,
		RawModels:      []string{"GEFS"},
		RawModelSuffix: "-REMVIES-ONS",
		GridFilePrefix: "PMEDIA",
		GridModelName:  "PMEDIA-ONS",
		GridHorizon:    3,
		BlendPairs:     []domain.BlendPair{{Source: "GEFS-ONS", Output: "PCONJUNTO-ONS"}},
		CutoffWeekday:  time.Thursday,
		Workers:        2,
	}, discardLogger(), metrics)

	require.NoError(t, runner.ProcessOutput(ctx, runDate))

	assert.Equal(t, map[string]int{"GEFS-REMVIES-ONS": 6, "PMEDIA-ONS": 6, "PCONJUNTO-ONS": 6}, fs.published)
	assert.ElementsMatch(t, []string{"PMEDIA-ONS", "PCONJUNTO-ONS"}, fs.uploads)

	consumer := newConsumer(t, broker, testTopic)
	kinds := map[string]int{}
	for range 5 {
		n := readNotification(ctx, t, consumer)
		kinds[n.Event.Kind]++
		assert.Equal(t, "2024-06-03", n.Event.RunDate)
	}
	assert.Equal(t, map[string]int{domain.BatchKindForecast: 3, domain.BatchKindArchive: 2}, kinds)
}
