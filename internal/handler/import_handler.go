package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

const maxImportBytes = 5 << 20

type batchImporter interface {
	Import(ctx context.Context, r io.Reader, startDate string) (*dto.BatchImportResponse, error)
	Template() (string, []byte, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	service batchImporter
}

// NewImportHandler constructs the handler.
func NewImportHandler(svc batchImporter) *ImportHandler {
	return &ImportHandler{service: svc}
}

// BatchImport godoc
// @Summary Schedule surgeries from a CSV upload
// @Description Rows missing patient age or surgery type are skipped and reported in errors.
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file using the template columns"
// @Param start_date query string false "First day of the horizon (YYYY-MM-DD), defaults to today"
// @Success 201 {object} response.Envelope{data=dto.BatchImportResponse}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /batch-import [post]
func (h *ImportHandler) BatchImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "uploaded file could not be read"))
		return
	}
	defer file.Close()

	resp, err := h.service.Import(c.Request.Context(), file, c.Query("start_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp, map[string]interface{}{"run_id": resp.RunID, "errors": len(resp.Errors)})
}

// Template godoc
// @Summary Download the batch import template
// @Tags Import
// @Produce text/csv
// @Success 200 {file} file
// @Router /template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	name, body, err := h.service.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, name, "text/csv; charset=utf-8", body)
}
