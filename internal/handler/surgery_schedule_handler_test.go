package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/middleware"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type surgerySchedulerMock struct {
	captured dto.ScheduleRequest
	query    dto.ScheduleRunQuery
	format   string
	err      error
}

func (m *surgerySchedulerMock) Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ScheduleResponse{
		RunID:    "run-1",
		Schedule: []dto.ScheduledSurgery{{CaseID: "A", OperatingRoom: 1, ScheduledTime: "08:00"}},
		Unplaced: []dto.UnplacedSurgery{{CaseID: "B", Reason: "no_capacity"}},
	}, nil
}

func (m *surgerySchedulerMock) Get(ctx context.Context, runID string) (*dto.ScheduleResponse, error) {
	if runID != "run-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
	}
	return &dto.ScheduleResponse{RunID: runID}, nil
}

func (m *surgerySchedulerMock) List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, error) {
	m.query = query
	return []dto.ScheduleRunSummary{{ID: "run-1", Status: "persisted"}}, nil
}

func (m *surgerySchedulerMock) Export(ctx context.Context, runID, format string) (*service.ExportResult, error) {
	m.format = format
	if format != "csv" {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "unsupported export format")
	}
	return &service.ExportResult{Filename: "schedule-" + runID + ".csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Date,Time\n")}, nil
}

func scheduleRouter(h *SurgeryScheduleHandler, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	generate := append(append([]gin.HandlerFunc{}, guards...), h.Generate)
	router.POST("/schedule", generate...)
	router.GET("/schedules", h.List)
	router.GET("/schedules/:id", h.Get)
	router.GET("/schedules/:id/export", h.Export)
	return router
}

func decodeEnvelope(t *testing.T, body []byte) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestSurgeryScheduleGenerateCreated(t *testing.T) {
	mockSvc := &surgerySchedulerMock{}
	router := scheduleRouter(NewSurgeryScheduleHandler(mockSvc, nil))

	payload := `{"start_date":"2024-06-03","surgeries":[{"id":"A","patient_age":70,"surgery_type":"Cardiac","scheduled_start":"2024-06-03T08:00:00"}],"options":{"rooms":2}}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2024-06-03", mockSvc.captured.StartDate)
	require.Len(t, mockSvc.captured.Surgeries, 1)
	assert.Equal(t, 70, mockSvc.captured.Surgeries[0].PatientAge)
	require.NotNil(t, mockSvc.captured.Options)
	assert.Equal(t, 2, *mockSvc.captured.Options.Rooms)

	env := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "run-1", env.Meta["run_id"])
	assert.Contains(t, w.Body.String(), `"reason":"no_capacity"`)
}

func TestSurgeryScheduleGenerateMalformedJSON(t *testing.T) {
	router := scheduleRouter(NewSurgeryScheduleHandler(&surgerySchedulerMock{}, nil))
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(`{"surgeries":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestSurgeryScheduleGenerateTooManyCases(t *testing.T) {
	mockSvc := &surgerySchedulerMock{}
	router := scheduleRouter(NewSurgeryScheduleHandler(mockSvc, nil))

	rows := make([]string, maxSurgeriesPerRequest+1)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"surgery_type":"ENT","scheduled_start":"2024-06-03T08:00:00","patient_age":%d}`, i%90)
	}
	payload := `{"start_date":"2024-06-03","surgeries":[` + strings.Join(rows, ",") + `]}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.captured.StartDate)
}

func TestSurgeryScheduleGeneratePropagatesServiceError(t *testing.T) {
	mockSvc := &surgerySchedulerMock{err: appErrors.Clone(appErrors.ErrTimeout, "scheduling pass exceeded its deadline")}
	router := scheduleRouter(NewSurgeryScheduleHandler(mockSvc, nil))
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(`{"start_date":"2024-06-03","surgeries":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, appErrors.ErrTimeout.Status, w.Code)
}

type staticTokens struct {
	claims *models.JWTClaims
}

func (s staticTokens) Validate(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.ErrUnauthorized
	}
	return s.claims, nil
}

func TestSurgeryScheduleGenerateGuarded(t *testing.T) {
	tokens := staticTokens{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleViewer}}
	guards := middleware.Guard(true, tokens, models.RoleScheduler, models.RoleAdmin)
	router := scheduleRouter(NewSurgeryScheduleHandler(&surgerySchedulerMock{}, nil), guards...)

	body := `{"start_date":"2024-06-03","surgeries":[]}`

	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSurgeryScheduleGetAndList(t *testing.T) {
	mockSvc := &surgerySchedulerMock{}
	router := scheduleRouter(NewSurgeryScheduleHandler(mockSvc, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules/run-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, mockSvc.query.Limit)
	env := decodeEnvelope(t, w.Body.Bytes())
	assert.EqualValues(t, 1, env.Meta["count"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSurgeryScheduleExport(t *testing.T) {
	mockSvc := &surgerySchedulerMock{}
	router := scheduleRouter(NewSurgeryScheduleHandler(mockSvc, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules/run-1/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.format)
	assert.Equal(t, `attachment; filename="schedule-run-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date,Time\n", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules/run-1/export?format=xlsx", nil))
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Status, w.Code)
}

type predictorMock struct {
	captured dto.SurgeryRequest
}

func (m *predictorMock) Predict(ctx context.Context, req dto.SurgeryRequest) (*dto.PredictionResponse, error) {
	m.captured = req
	return &dto.PredictionResponse{DelayProbability: 0.42, PredictedDelay: "No", PredictedDuration: 95, DurationRange: "85-105"}, nil
}

func TestPredictionHandler(t *testing.T) {
	mockSvc := &predictorMock{}
	h := NewPredictionHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"patient_age":55,"bmi":27.5,"surgery_type":"Orthopedic","scheduled_start":"2024-06-03 09:00"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Predict(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Orthopedic", mockSvc.captured.SurgeryType)
	assert.InDelta(t, 27.5, mockSvc.captured.BMI, 1e-9)
	assert.Contains(t, w.Body.String(), `"duration_range":"85-105"`)

	req = httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req
	h.Predict(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type importerMock struct {
	body      string
	startDate string
}

func (m *importerMock) Import(ctx context.Context, r io.Reader, startDate string) (*dto.BatchImportResponse, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.body = string(raw)
	m.startDate = startDate
	return &dto.BatchImportResponse{ImportedCount: 1, RunID: "run-9", Errors: []string{"row 3: surgery_type is required"}}, nil
}

func (m *importerMock) Template() (string, []byte, error) {
	return "surgery_template.csv", []byte("Patient_Age,Surgery_Type\n"), nil
}

func TestImportHandlerBatchImport(t *testing.T) {
	mockSvc := &importerMock{}
	router := gin.New()
	h := NewImportHandler(mockSvc)
	router.POST("/batch-import", h.BatchImport)
	router.GET("/template", h.Template)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cases.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Patient_Age,Surgery_Type\n60,ENT\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/batch-import?start_date=2024-06-03", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2024-06-03", mockSvc.startDate)
	assert.Contains(t, mockSvc.body, "60,ENT")
	env := decodeEnvelope(t, w.Body.Bytes())
	assert.EqualValues(t, 1, env.Meta["errors"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/template", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="surgery_template.csv"`, w.Header().Get("Content-Disposition"))
}

func TestImportHandlerRequiresFile(t *testing.T) {
	router := gin.New()
	router.POST("/batch-import", NewImportHandler(&importerMock{}).BatchImport)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/batch-import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
