// Package registry talks to the forecast service: it lists sub-basins,
// publishes and fetches forecast series, and uploads file archives.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/observability"
)

const (
	subBasinsPath = "/api/v2/rodadas/subbacias"
	publishPath   = "/api/v2/rodadas/chuva/previsao/modelos"
	fetchPath     = "/api/v2/rodadas/chuva/previsao"
	uploadPath    = "/pluv/api/raw-rain-map/"

	maxErrorBody = 4 << 10
)

// Operation labels used in metrics and errors.
const (
	opSubBasins = "subbasins"
	opPublish   = "publish"
	opFetch     = "fetch"
	opUpload    = "upload"
)

// Client is the forecast service HTTP client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a forecast service client.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchSubBasins lists the registered sub-basins.
func (c *Client) FetchSubBasins(ctx context.Context) ([]domain.SubBasin, error) {
	var rows []subBasinDTO
	if err := c.getJSON(ctx, opSubBasins, c.baseURL+subBasinsPath, &rows); err != nil {
		return nil, err
	}

	basins := make([]domain.SubBasin, len(rows))
	for i, r := range rows {
		basins[i] = r.toDomain()
	}
	c.logger.Debug("sub-basins fetched", "count", len(basins))
	return basins, nil
}

// PublishForecast posts a batch of forecast records.
func (c *Client) PublishForecast(ctx context.Context, records []domain.ForecastRecord) error {
	body := make([]forecastDTO, len(records))
	for i, r := range records {
		body[i] = newForecastDTO(r)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode forecast batch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+publishPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, opPublish)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FetchForecast retrieves the series previously published for model at runDate.
func (c *Client) FetchForecast(ctx context.Context, model string, runDate time.Time) ([]domain.ForecastRecord, error) {
	params := url.Values{
		"nome_modelo":  {model},
		"dt_hr_rodada": {domain.RunTimestamp(runDate)},
	}

	var rows []forecastDTO
	if err := c.getJSON(ctx, opFetch, c.baseURL+fetchPath+"?"+params.Encode(), &rows); err != nil {
		return nil, err
	}

	records := make([]domain.ForecastRecord, 0, len(rows))
	for i, r := range rows {
		rec, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s row %d: %v", domain.ErrUpstreamService, opFetch, model, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// UploadArchive sends a packaged archive with its model and run metadata.
func (c *Client) UploadArchive(ctx context.Context, path string, meta domain.ArchiveMeta) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("modelo", meta.ModelName); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if err := mw.WriteField("rodada", domain.RunTimestamp(meta.RunTimestamp)); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read archive %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req, opUpload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("archive uploaded", "file", filepath.Base(path), "model", meta.ModelName)
	return nil
}

// CheckReadiness verifies the forecast service answers the catalog endpoint.
func (c *Client) CheckReadiness(ctx context.Context) error {
	_, err := c.FetchSubBasins(ctx)
	return err
}

func (c *Client) getJSON(ctx context.Context, op, fullURL string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrUpstreamService, op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and returns the response only for 2xx statuses.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RegistryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RegistryRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: %s request: %v", domain.ErrUpstreamService, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.metrics.RegistryRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrUpstreamService, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.metrics.RegistryRequests.WithLabelValues(op, "success").Inc()
	return resp, nil
}
