package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	"hdb-predictor/backend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow() domain.FeatureRow {
	return domain.FeatureRow{
		Columns: []string{"floor_area_sqm", "Tranc_Year", "town_BEDOK", "town_YISHUN"},
		Values:  []float64{100, 2024, 0, 1},
	}
}

func testSchema(t *testing.T) *schemadomain.Schema {
	t.Helper()
	s, err := schemadomain.New(
		testRow().Columns,
		[]string{"floor_area_sqm", "Tranc_Year"},
		[]schemadomain.DummyGroup{{Name: "town", Prefix: "town_", Categories: []string{"BEDOK", "YISHUN"}}},
		nil,
	)
	require.NoError(t, err)
	return s
}

func TestLinearModelPredict(t *testing.T) {
	model := NewLinearModel(1000, map[string]float64{
		"floor_area_sqm": 4000,
		"town_YISHUN":    -25000,
		"not_in_row":     1e9,
	})

	got, err := model.Predict(context.Background(), testRow())
	require.NoError(t, err)
	assert.InDelta(t, 1000+400000-25000, got, 1e-9)
}

func TestLinearModelPredictHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLinearModel(0, map[string]float64{"a": 1}).Predict(ctx, testRow())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseLinearModel(t *testing.T) {
	model, err := ParseLinearModel([]byte(`{"intercept": 50000, "coefficients": {"floor_area_sqm": 4500.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 50000.0, model.intercept)
	assert.Equal(t, map[string]float64{"floor_area_sqm": 4500.5}, model.coefficients)

	invalid := []string{
		`{"coefficients": {"a": 1}}`,
		`{"intercept": "lots", "coefficients": {"a": 1}}`,
		`{"intercept": 1, "coefficients": {}}`,
		`{"intercept": 1, "coefficients": {"a": "heavy"}}`,
	}
	for _, doc := range invalid {
		_, err := ParseLinearModel([]byte(doc))
		assert.ErrorContains(t, err, "invalid linear model", doc)
	}
}

func TestLoadLinearModel(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"intercept": 1, "coefficients": {"floor_area_sqm": 2, "town_BEDOK": 3}}`), 0o600))
	model, err := LoadLinearModel(good, testSchema(t))
	require.NoError(t, err)
	assert.Len(t, model.coefficients, 2)

	stale := filepath.Join(dir, "stale.json")
	require.NoError(t, os.WriteFile(stale, []byte(`{"intercept": 1, "coefficients": {"town_SENGKANG": 2, "town_PUNGGOL": 3}}`), 0o600))
	_, err = LoadLinearModel(stale, testSchema(t))
	assert.ErrorContains(t, err, "coefficients for columns not in schema: town_PUNGGOL, town_SENGKANG")

	_, err = LoadLinearModel(filepath.Join(dir, "missing.json"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPModelClientPredict(t *testing.T) {
	var got scoringRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"predictions": [487654.32]}`)
	}))
	defer server.Close()

	client := NewHTTPModelClient(server.URL, time.Second)
	defer client.Close()

	value, err := client.Predict(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, 487654.32, value)
	assert.Equal(t, testRow().Columns, got.Columns)
	assert.Equal(t, [][]float64{testRow().Values}, got.Rows)
}

func TestHTTPModelClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "model not loaded", "scoring service returned 500: model not loaded"},
		{"empty predictions", http.StatusOK, `{"predictions": []}`, "no predictions"},
		{"garbage", http.StatusOK, `<html>`, "failed to decode scoring response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewHTTPModelClient(server.URL, time.Second).Predict(context.Background(), testRow())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenAIModelClientPredict(t *testing.T) {
	var userMessage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 2) {
			userMessage = req.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": " $512,000.50 "}, "finish_reason": "stop"}]
		}`)
	}))
	defer server.Close()

	client, err := NewOpenAIModelClient(configdomain.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	value, err := client.Predict(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, 512000.5, value)

	var sent map[string]float64
	require.NoError(t, json.Unmarshal([]byte(userMessage), &sent))
	assert.Equal(t, testRow().Map(), sent)
}

func TestNewOpenAIModelClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIModelClient(configdomain.OpenAIConfig{Model: "gpt-4o-mini"})
	assert.Error(t, err)
}

func TestParseEstimate(t *testing.T) {
	v, err := parseEstimate("450000")
	require.NoError(t, err)
	assert.Equal(t, 450000.0, v)

	v, err = parseEstimate("$1,234,567.89\n")
	require.NoError(t, err)
	assert.Equal(t, 1234567.89, v)

	_, err = parseEstimate("About half a million dollars")
	assert.ErrorContains(t, err, "is not a number")
}

func TestNewModelClient(t *testing.T) {
	log := logger.NewTestLogger(t)

	client, err := NewModelClient(configdomain.ModelConfig{Provider: configdomain.ProviderConstant, Constant: 42}, nil, log)
	require.NoError(t, err)
	assert.Equal(t, configdomain.ProviderConstant, client.Name())
	v, err := client.Predict(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intercept": 7, "coefficients": {"Tranc_Year": 1}}`), 0o600))
	client, err = NewModelClient(configdomain.ModelConfig{Provider: configdomain.ProviderLinear, Path: path}, testSchema(t), log)
	require.NoError(t, err)
	v, err = client.Predict(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, 2031.0, v)

	client, err = NewModelClient(configdomain.ModelConfig{Provider: configdomain.ProviderHTTP, URL: "http://localhost:1", Timeout: time.Second}, nil, log)
	require.NoError(t, err)
	assert.Equal(t, configdomain.ProviderHTTP, client.Name())
	require.NoError(t, client.Close())

	_, err = NewModelClient(configdomain.ModelConfig{Provider: "crystal_ball"}, nil, log)
	assert.ErrorContains(t, err, `unknown model provider "crystal_ball"`)
}

func TestParseEstimateRejectsNonFiniteReplies(t *testing.T) {
	for _, reply := range []string{"NaN", "Inf", "-Infinity", "$inf"} {
		_, err := parseEstimate(reply)
		assert.ErrorContains(t, err, "is not a number", reply)
	}
}
