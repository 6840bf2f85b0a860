package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

const maxSurgeriesPerRequest = service.MaxSurgeriesPerRun

type surgeryScheduler interface {
	Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, runID string) (*dto.ScheduleResponse, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, error)
	Export(ctx context.Context, runID, format string) (*service.ExportResult, error)
}

// SurgeryScheduleHandler exposes the weekly scheduling endpoints.
type SurgeryScheduleHandler struct {
	service surgeryScheduler
	logger  *zap.Logger
}

// NewSurgeryScheduleHandler constructs the handler.
func NewSurgeryScheduleHandler(svc surgeryScheduler, logger *zap.Logger) *SurgeryScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurgeryScheduleHandler{service: svc, logger: logger}
}

// Generate godoc
// @Summary Build a weekly operating-room schedule
// @Description Places each surgery into a run of consecutive slots. Cases that cannot be placed are listed under unplaced.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRequest true "Surgeries and scheduling window"
// @Success 201 {object} response.Envelope{data=dto.ScheduleResponse}
// @Failure 400 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule [post]
func (h *SurgeryScheduleHandler) Generate(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	if len(req.Surgeries) > maxSurgeriesPerRequest {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "too many surgeries in one request, max "+strconv.Itoa(maxSurgeriesPerRequest)))
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		h.logger.Info("schedule requested", zap.String("run_id", resp.RunID), zap.String("user_id", claims.Principal()))
	}
	response.Created(c, resp, map[string]interface{}{"run_id": resp.RunID})
}

// Get godoc
// @Summary Fetch a generated schedule
// @Tags Schedule
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope{data=dto.ScheduleResponse}
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *SurgeryScheduleHandler) Get(c *gin.Context) {
	resp, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// List godoc
// @Summary List stored schedule runs
// @Tags Schedule
// @Produce json
// @Param limit query int false "Maximum runs to return (default 20)"
// @Success 200 {object} response.Envelope{data=[]dto.ScheduleRunSummary}
// @Router /schedules [get]
func (h *SurgeryScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	runs, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil, map[string]interface{}{"count": len(runs)})
}

// Export godoc
// @Summary Download a schedule as CSV or PDF
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/export [get]
func (h *SurgeryScheduleHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
