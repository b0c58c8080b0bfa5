package infrastructure

import (
	"context"
	"fmt"

	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	"hdb-predictor/backend/internal/logger"
)

// ModelClient defines a generic interface for prediction model backends.
type ModelClient interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Predict returns the model's estimate for one feature row.
	Predict(ctx context.Context, row domain.FeatureRow) (float64, error)

	// Close releases any resources held by the client.
	Close() error
}

// NewModelClient creates the model client selected by cfg.Provider. The
// schema lets providers check their artifact against the model input columns
// at startup.
func NewModelClient(cfg configdomain.ModelConfig, schema *schemadomain.Schema, log logger.Logger) (ModelClient, error) {
	log = log.WithFields(map[string]interface{}{"provider": cfg.Provider})

	switch cfg.Provider {
	case configdomain.ProviderLinear:
		model, err := LoadLinearModel(cfg.Path, schema)
		if err != nil {
			return nil, err
		}
		log.Info("linear model loaded", map[string]interface{}{
			"path":         cfg.Path,
			"coefficients": len(model.coefficients),
		})
		return model, nil
	case configdomain.ProviderHTTP:
		log.Info("using remote scoring service", map[string]interface{}{"url": cfg.URL})
		return NewHTTPModelClient(cfg.URL, cfg.Timeout), nil
	case configdomain.ProviderOpenAI:
		log.Info("using chat model estimates", map[string]interface{}{"model": cfg.OpenAI.Model})
		return NewOpenAIModelClient(cfg.OpenAI)
	case configdomain.ProviderConstant:
		log.Warn("using constant model", map[string]interface{}{"value": cfg.Constant})
		return NewConstantModel(cfg.Constant), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// ConstantModel always predicts the same value. It backs demos and tests.
type ConstantModel struct {
	value float64
}

// NewConstantModel creates a ConstantModel returning value.
func NewConstantModel(value float64) *ConstantModel {
	return &ConstantModel{value: value}
}

func (m *ConstantModel) Name() string { return configdomain.ProviderConstant }

func (m *ConstantModel) Predict(ctx context.Context, _ domain.FeatureRow) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.value, nil
}

func (m *ConstantModel) Close() error { return nil }
