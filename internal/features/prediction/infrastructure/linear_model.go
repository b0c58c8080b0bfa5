package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"

	"github.com/xeipuuv/gojsonschema"
)

// linearArtifactSchema is the JSON schema of an exported linear model.
const linearArtifactSchema = `{
  "type": "object",
  "required": ["intercept", "coefficients"],
  "properties": {
    "intercept": {"type": "number"},
    "coefficients": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "number"}
    }
  }
}`

type linearArtifact struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// LinearModel predicts intercept + sum(weight * value) over named columns.
type LinearModel struct {
	intercept    float64
	coefficients map[string]float64
}

// NewLinearModel creates a LinearModel from in-memory weights.
func NewLinearModel(intercept float64, coefficients map[string]float64) *LinearModel {
	c := make(map[string]float64, len(coefficients))
	for k, v := range coefficients {
		c[k] = v
	}
	return &LinearModel{intercept: intercept, coefficients: c}
}

// LoadLinearModel reads a JSON artifact, validates it and checks that every
// coefficient names a schema column.
func LoadLinearModel(path string, schema *schemadomain.Schema) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}
	model, err := ParseLinearModel(data)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	if schema != nil {
		if err := model.checkColumns(schema); err != nil {
			return nil, fmt.Errorf("model artifact %s: %w", path, err)
		}
	}
	return model, nil
}

// ParseLinearModel validates data against the artifact schema and decodes it.
func ParseLinearModel(data []byte) (*LinearModel, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(linearArtifactSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("invalid linear model: %s", strings.Join(errs, "; "))
	}

	var artifact linearArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode linear model: %w", err)
	}
	return NewLinearModel(artifact.Intercept, artifact.Coefficients), nil
}

func (m *LinearModel) checkColumns(schema *schemadomain.Schema) error {
	var unknown []string
	for column := range m.coefficients {
		if _, ok := schema.Index(column); !ok {
			unknown = append(unknown, column)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("coefficients for columns not in schema: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (m *LinearModel) Name() string { return configdomain.ProviderLinear }

func (m *LinearModel) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(row.Columns) != len(row.Values) {
		return 0, fmt.Errorf("row has %d columns and %d values", len(row.Columns), len(row.Values))
	}
	sum := m.intercept
	for i, column := range row.Columns {
		sum += m.coefficients[column] * row.Values[i]
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf("linear model produced %v", sum)
	}
	return sum, nil
}

func (m *LinearModel) Close() error { return nil }
