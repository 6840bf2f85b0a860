package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

type surgeryPredictor interface {
	Predict(ctx context.Context, req dto.SurgeryRequest) (*dto.PredictionResponse, error)
}

// PredictionHandler serves single-case estimates.
type PredictionHandler struct {
	service surgeryPredictor
}

// NewPredictionHandler constructs the handler.
func NewPredictionHandler(svc surgeryPredictor) *PredictionHandler {
	return &PredictionHandler{service: svc}
}

// Predict godoc
// @Summary Predict duration and delay risk for one surgery
// @Tags Prediction
// @Accept json
// @Produce json
// @Param payload body dto.SurgeryRequest true "Surgery"
// @Success 200 {object} response.Envelope{data=dto.PredictionResponse}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /predict [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req dto.SurgeryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid surgery payload"))
		return
	}
	resp, err := h.service.Predict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
