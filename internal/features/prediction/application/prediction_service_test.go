package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	configapp "hdb-predictor/backend/internal/features/config/application"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	"hdb-predictor/backend/internal/logger"
	"hdb-predictor/backend/internal/testsupport"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	mu    sync.Mutex
	value float64
	err   error
	rows  []domain.FeatureRow
}

func (p *stubPredictor) Name() string { return "stub" }

func (p *stubPredictor) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	p.mu.Lock()
	p.rows = append(p.rows, row)
	p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	return p.value, ctx.Err()
}

func (p *stubPredictor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rows)
}

func newTestService(t *testing.T, model Predictor) PredictionService {
	t.Helper()
	return NewPredictionService(testsupport.Forms(t), model, time.Second, logger.NewTestLogger(t))
}

func TestPredictScenario(t *testing.T) {
	model := &stubPredictor{value: 512345.678}
	svc := newTestService(t, model)

	prediction, err := svc.Predict(context.Background(), &domain.PredictionRequest{
		Answers: map[string]any{
			"floor_area_sqm": 100,
			"Tranc_Year":     2024,
			"flat_type_int":  "4-Room",
		},
		Selections: map[string]string{
			"town":       "ANG MO KIO",
			"flat_model": "Improved",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 512345.678, prediction.Value)
	assert.Equal(t, "$512,345.68", prediction.Formatted)
	_, err = uuid.Parse(prediction.RequestID)
	assert.NoError(t, err)
	require.Equal(t, 1, model.calls())

	row := model.rows[0]
	forms := testsupport.Forms(t)
	assert.Equal(t, forms.Schema().Columns, row.Columns)

	want := map[string]float64{}
	for _, c := range row.Columns {
		want[c] = 0
	}
	for column, v := range forms.Catalog().Defaults() {
		want[column] = v
	}
	want["floor_area_sqm"] = 100
	want["Tranc_Year"] = 2024
	want["flat_type_int"] = 4
	want["town_ANG MO KIO"] = 1
	want["flat_model_Improved"] = 1
	assert.Equal(t, want, row.Map())
}

func TestPredictUsesDefaultsForMissingInput(t *testing.T) {
	model := &stubPredictor{value: 1}
	svc := newTestService(t, model)

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, model.calls())

	row := model.rows[0]
	affiliation, _ := row.Get("affiliation")
	assert.Equal(t, 1.0, affiliation)
	maxFloor, _ := row.Get("max_floor_lvl")
	assert.Equal(t, 50.0, maxFloor)
	town, _ := row.Get("town_" + testsupport.Towns[0])
	assert.Equal(t, 1.0, town)
	flatModel, _ := row.Get("flat_model_" + testsupport.FlatModels[0])
	assert.Equal(t, 1.0, flatModel)
}

func TestPredictRejectsOutOfRangeAnswers(t *testing.T) {
	model := &stubPredictor{value: 1}
	svc := newTestService(t, model)

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{
		Answers: map[string]any{
			"floor_area_sqm":       301,
			"Tranc_Year":           "1999",
			"hdb_age":              "ancient",
			"town_BEDOK":           1,
			"commercial":           "Yes",
			"market_hawker":        0.5,
			"flat_type_int":        "4.5",
			"max_floor_lvl":        "NaN",
			"mrt_nearest_distance": "Inf",
			"lower":                math.Inf(-1),
		},
	})

	var fieldErrs domain.FieldErrors
	require.True(t, errors.As(err, &fieldErrs), "got %v", err)
	assert.Len(t, fieldErrs, 9)
	assert.Contains(t, fieldErrs["floor_area_sqm"], "between 0 and 300")
	assert.Contains(t, fieldErrs["Tranc_Year"], "between 2000 and 2040")
	assert.Contains(t, fieldErrs["hdb_age"], "invalid number")
	assert.Equal(t, "unknown field", fieldErrs["town_BEDOK"])
	assert.Contains(t, fieldErrs["market_hawker"], "must be 0 or 1")
	assert.Contains(t, fieldErrs["flat_type_int"], "unknown option")
	assert.Contains(t, fieldErrs["max_floor_lvl"], "invalid number")
	assert.Contains(t, fieldErrs["mrt_nearest_distance"], "invalid number")
	assert.Contains(t, fieldErrs["lower"], "finite number")
	assert.Zero(t, model.calls())
}

func TestPredictRejectsEmptySelection(t *testing.T) {
	model := &stubPredictor{value: 1}
	svc := newTestService(t, model)

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{
		Selections: map[string]string{"town": "", "flat_model": "Improved"},
	})
	assert.ErrorIs(t, err, domain.ErrMissingSelection)
	assert.ErrorContains(t, err, "town")
	assert.Zero(t, model.calls())
}

func TestPredictRejectsNonFiniteModelOutput(t *testing.T) {
	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := newTestService(t, &stubPredictor{value: value}).Predict(context.Background(), &domain.PredictionRequest{})
		assert.ErrorIs(t, err, domain.ErrModel, "%v", value)
	}
}

func TestPredictAcceptsBoundaryValues(t *testing.T) {
	model := &stubPredictor{value: 1}
	svc := newTestService(t, model)

	for _, f := range testsupport.Forms(t).Catalog().Fields {
		for _, v := range []float64{f.Min, f.Max} {
			_, err := svc.Predict(context.Background(), &domain.PredictionRequest{Answers: map[string]any{f.Column: v}})
			assert.NoError(t, err, "%s=%v", f.Column, v)
		}
	}
}

func TestPredictUnknownCategoryNeverReachesModel(t *testing.T) {
	model := &stubPredictor{value: 1}
	svc := newTestService(t, model)

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{
		Selections: map[string]string{"town": "ATLANTIS"},
	})
	assert.ErrorIs(t, err, schemadomain.ErrUnknownCategory)
	assert.Zero(t, model.calls())
}

func TestPredictWrapsModelErrors(t *testing.T) {
	cause := errors.New("connection refused")
	svc := newTestService(t, &stubPredictor{err: cause})

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{})
	assert.ErrorIs(t, err, domain.ErrModel)
	assert.ErrorIs(t, err, cause)
}

func TestPredictAppliesModelTimeout(t *testing.T) {
	svc := NewPredictionService(testsupport.Forms(t), blockingPredictor{}, 10*time.Millisecond, logger.NewNoOpLogger())

	_, err := svc.Predict(context.Background(), &domain.PredictionRequest{})
	assert.ErrorIs(t, err, domain.ErrModel)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingPredictor struct{}

func (blockingPredictor) Name() string { return "blocking" }

func (blockingPredictor) Predict(ctx context.Context, _ domain.FeatureRow) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// driftingForms hands the row builder one schema and the shape check another.
type driftingForms struct {
	configapp.FormConfigService
	calls   int
	drifted *schemadomain.Schema
}

func (f *driftingForms) Schema() *schemadomain.Schema {
	f.calls++
	if f.calls == 1 {
		return f.FormConfigService.Schema()
	}
	return f.drifted
}

func TestPredictRejectsRowsThatDoNotMatchSchema(t *testing.T) {
	forms := testsupport.Forms(t)
	s := forms.Schema()
	drifted, err := schemadomain.New(append(append([]string(nil), s.Columns...), "lease_commence_date"), s.BaseColumns, s.Groups, s.Passthrough)
	require.NoError(t, err)

	model := &stubPredictor{value: 1}
	svc := NewPredictionService(&driftingForms{FormConfigService: forms, drifted: drifted}, model, time.Second, logger.NewTestLogger(t))

	_, err = svc.Predict(context.Background(), &domain.PredictionRequest{})
	assert.ErrorIs(t, err, schemadomain.ErrShapeMismatch)
	assert.Zero(t, model.calls())
}

func TestPredictConcurrentRequests(t *testing.T) {
	model := &stubPredictor{value: 300000}
	svc := newTestService(t, model)

	var wg sync.WaitGroup
	for i, town := range testsupport.Towns {
		wg.Add(1)
		go func(area float64, town string) {
			defer wg.Done()
			p, err := svc.Predict(context.Background(), &domain.PredictionRequest{
				Answers:    map[string]any{"floor_area_sqm": area},
				Selections: map[string]string{"town": town},
			})
			if assert.NoError(t, err) {
				assert.Equal(t, "$300,000.00", p.Formatted)
			}
		}(float64(60+i*10), town)
	}
	wg.Wait()
	assert.Equal(t, len(testsupport.Towns), model.calls())
}
