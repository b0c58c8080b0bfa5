package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	configapp "hdb-predictor/backend/internal/features/config/application"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	"hdb-predictor/backend/internal/logger"
	"hdb-predictor/backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Predictor is the opaque model contract: one row in, one estimate out.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, row domain.FeatureRow) (float64, error)
}

// PredictionService defines the interface for the prediction application service.
type PredictionService interface {
	Predict(ctx context.Context, req *domain.PredictionRequest) (*domain.Prediction, error)
}

// predictionService is the implementation of PredictionService.
type predictionService struct {
	forms   configapp.FormConfigService
	builder *RowBuilder
	model   Predictor
	timeout time.Duration
	logger  logger.Logger
}

// NewPredictionService creates a new instance of predictionService. timeout
// bounds each model call; zero means no bound beyond the caller's context.
func NewPredictionService(forms configapp.FormConfigService, model Predictor, timeout time.Duration, log logger.Logger) PredictionService {
	return &predictionService{
		forms:   forms,
		builder: NewRowBuilder(forms.Schema()),
		model:   model,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"model": model.Name()}),
	}
}

// Predict validates the answers against the catalog bounds, fills defaults for
// anything unanswered, builds the feature row, checks its shape and makes one
// model call. Only an absent selection takes the group default; an empty one
// is an error.
func (s *predictionService) Predict(ctx context.Context, req *domain.PredictionRequest) (*domain.Prediction, error) {
	requestID := uuid.New().String()
	log := s.logger.WithFields(map[string]interface{}{"requestId": requestID})

	answers, fieldErrs := s.normalizeAnswers(req.Answers)
	if len(fieldErrs) > 0 {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
		log.Info("rejected answers", map[string]interface{}{"errors": map[string]string(fieldErrs)})
		return nil, fieldErrs
	}

	selections := s.forms.Form().DefaultSelections()
	for _, group := range sortedKeys(req.Selections) {
		category := req.Selections[group]
		if category == "" {
			metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
			log.Info("empty selection", map[string]interface{}{"group": group})
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingSelection, group)
		}
		selections[group] = category
	}

	row, err := s.builder.Build(answers, selections)
	if err != nil {
		outcome := metrics.OutcomeInvalidInput
		if errors.Is(err, schemadomain.ErrUnknownCategory) {
			outcome = metrics.OutcomeUnknownCategory
		}
		metrics.PredictionsTotal.WithLabelValues(outcome).Inc()
		log.Warn("failed to build feature row", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if err := s.forms.Schema().Conforms(row.Columns); err != nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeShapeMismatch).Inc()
		log.Error("feature row does not match schema", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := s.model.Predict(ctx, row)
	metrics.PredictionDuration.WithLabelValues(s.model.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeModelError).Inc()
		log.WithError(err).Error("model call failed", nil)
		return nil, fmt.Errorf("%w: %w", domain.ErrModel, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeModelError).Inc()
		log.Error("model returned a non-finite value", map[string]interface{}{"prediction": fmt.Sprint(value)})
		return nil, fmt.Errorf("%w: model returned %v", domain.ErrModel, value)
	}

	prediction := &domain.Prediction{
		RequestID: requestID,
		Value:     value,
		Formatted: domain.FormatCurrency(value),
		Row:       row,
	}
	metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info("prediction made", map[string]interface{}{
		"prediction": value,
		"columns":    len(row.Columns),
		"elapsed":    time.Since(start).String(),
	})
	return prediction, nil
}

// normalizeAnswers coerces every answer to the numeric value of its field and
// checks the catalog bounds. Unanswered fields take their default.
func (s *predictionService) normalizeAnswers(raw map[string]any) (map[string]any, domain.FieldErrors) {
	catalog := s.forms.Catalog()
	out := make(map[string]any, len(catalog.Fields))
	for column, def := range catalog.Defaults() {
		out[column] = def
	}

	fieldErrs := domain.FieldErrors{}
	for column, value := range raw {
		field, ok := catalog.Field(column)
		if !ok {
			fieldErrs[column] = "unknown field"
			continue
		}

		var (
			v   float64
			err error
		)
		switch typed := value.(type) {
		case nil:
			err = fmt.Errorf("%w: %s is empty", domain.ErrInvalidAnswer, column)
		case string:
			v, err = field.Parse(typed)
		default:
			v, err = cast.ToFloat64E(typed)
		}
		if err == nil {
			err = field.Validate(v)
		}
		if err != nil {
			fieldErrs[column] = err.Error()
			continue
		}
		out[column] = v
	}
	return out, fieldErrs
}
