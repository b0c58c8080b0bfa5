package http

import (
	"net/http"

	"hdb-predictor/backend/internal/features/config/application"

	"github.com/gin-gonic/gin"
)

// FormConfigHandler holds the form config service.
type FormConfigHandler struct {
	formConfigService application.FormConfigService
}

// NewFormConfigHandler creates a new FormConfigHandler.
func NewFormConfigHandler(formConfigService application.FormConfigService) *FormConfigHandler {
	return &FormConfigHandler{
		formConfigService: formConfigService,
	}
}

// GetFormHandler returns the form description: fields with prompts, bounds
// and defaults, groups with their categories.
func (h *FormConfigHandler) GetFormHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.formConfigService.Form())
}

// GetSchemaHandler returns the model input schema discovered at startup.
func (h *FormConfigHandler) GetSchemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.formConfigService.Schema())
}
