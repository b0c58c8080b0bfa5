package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"
)

type scoringRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type scoringResponse struct {
	Predictions []float64 `json:"predictions"`
}

// HTTPModelClient sends rows to a remote scoring service, e.g. the model
// served next to its training pipeline.
type HTTPModelClient struct {
	url        string
	httpClient *http.Client
}

// NewHTTPModelClient creates a client posting to url with the given timeout.
func NewHTTPModelClient(url string, timeout time.Duration) *HTTPModelClient {
	return &HTTPModelClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPModelClient) Name() string { return configdomain.ProviderHTTP }

// Predict posts {"columns": [...], "rows": [[...]]} and expects
// {"predictions": [number]}.
func (c *HTTPModelClient) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	body, err := json.Marshal(scoringRequest{Columns: row.Columns, Rows: [][]float64{row.Values}})
	if err != nil {
		return 0, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("scoring service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out scoringResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return 0, fmt.Errorf("scoring service returned no predictions")
	}
	return out.Predictions[0], nil
}

func (c *HTTPModelClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
