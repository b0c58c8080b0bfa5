package http

import (
	"errors"
	"net/http"

	configapp "hdb-predictor/backend/internal/features/config/application"
	"hdb-predictor/backend/internal/features/prediction/application"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
	"hdb-predictor/backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// FormTemplate is the template name registered by Templates.
const FormTemplate = "form.tmpl"

// PredictionHandler holds the prediction service and the form configuration.
type PredictionHandler struct {
	predictionService application.PredictionService
	forms             configapp.FormConfigService
	logger            logger.Logger
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(predictionService application.PredictionService, forms configapp.FormConfigService, log logger.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		forms:             forms,
		logger:            log,
	}
}

// FormPageHandler renders the empty form with catalog defaults.
func (h *PredictionHandler) FormPageHandler(c *gin.Context) {
	c.HTML(http.StatusOK, FormTemplate, newFormPage(h.forms.Form(), nil, nil, nil))
}

// SubmitFormHandler handles the form's "Make Prediction" button. The page is
// rendered again with the submitted values and either the result or the errors.
func (h *PredictionHandler) SubmitFormHandler(c *gin.Context) {
	form := h.forms.Form()

	values := make(map[string]string, len(form.Fields))
	answers := make(map[string]any, len(form.Fields))
	for _, f := range form.Fields {
		if v, ok := c.GetPostForm(f.Column); ok {
			values[f.Column] = v
			answers[f.Column] = v
		}
	}
	selections := make(map[string]string, len(form.Groups))
	for _, g := range form.Groups {
		if v, ok := c.GetPostForm(g.Name); ok {
			selections[g.Name] = v
		}
	}

	prediction, err := h.predictionService.Predict(c.Request.Context(), &domain.PredictionRequest{
		Answers:    answers,
		Selections: selections,
	})
	page := newFormPage(form, values, selections, err)
	if err != nil {
		c.HTML(statusFor(err), FormTemplate, page)
		return
	}

	page.Result = prediction.Formatted
	page.RequestID = prediction.RequestID
	c.HTML(http.StatusOK, FormTemplate, page)
}

// PredictHandler handles JSON prediction requests.
func (h *PredictionHandler) PredictHandler(c *gin.Context) {
	var req domain.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prediction, err := h.predictionService.Predict(c.Request.Context(), &req)
	if err != nil {
		body := gin.H{"error": err.Error()}
		var fieldErrs domain.FieldErrors
		if errors.As(err, &fieldErrs) {
			body = gin.H{"error": "invalid input", "fields": fieldErrs}
		}
		c.JSON(statusFor(err), body)
		return
	}

	c.JSON(http.StatusOK, domain.PredictionResponse{
		RequestID:  prediction.RequestID,
		Prediction: prediction.Value,
		Formatted:  prediction.Formatted,
	})
}

func statusFor(err error) int {
	var fieldErrs domain.FieldErrors
	switch {
	case errors.As(err, &fieldErrs),
		errors.Is(err, schemadomain.ErrUnknownCategory),
		errors.Is(err, schemadomain.ErrUnknownGroup),
		errors.Is(err, domain.ErrMissingSelection),
		errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrModel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
