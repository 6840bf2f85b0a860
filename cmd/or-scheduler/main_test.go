package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/pkg/config"
)

const weekYAML = `start_date: "2024-06-03"
options:
  rooms: 2
surgeries:
  - id: A
    patient_age: 70
    bmi: 31
    surgery_type: Cardiac
    scheduled_start: "2024-06-03T08:00:00"
    time_preference: Morning
  - id: B
    patient_age: 40
    bmi: 22
    surgery_type: ENT
    scheduled_start: "2024-06-04 13:00"
`

func TestDecodeScheduleRequestDocument(t *testing.T) {
	req, err := decodeScheduleRequest([]byte(weekYAML))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", req.StartDate)
	require.Len(t, req.Surgeries, 2)
	assert.Equal(t, "2024-06-03T08:00:00", req.Surgeries[0].ScheduledStart)
	require.NotNil(t, req.Options)
	assert.Equal(t, 2, *req.Options.Rooms)
}

func TestDecodeScheduleRequestJSONList(t *testing.T) {
	req, err := decodeScheduleRequest([]byte(`[{"id":"A","patient_age":55,"surgery_type":"Orthopedic","scheduled_start":"2024-06-05T10:00:00"}]`))
	require.NoError(t, err)
	assert.Empty(t, req.StartDate)
	require.Len(t, req.Surgeries, 1)
	assert.Equal(t, 55, req.Surgeries[0].PatientAge)

	_, err = decodeScheduleRequest([]byte("  \n"))
	assert.Error(t, err)
}

func TestDecodeSurgery(t *testing.T) {
	req, err := decodeSurgery([]byte("patient_age: 61\nsurgery_type: General\nscheduled_start: \"2024-06-03 09:00\"\ntotal_or_time: 95.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 61, req.PatientAge)
	require.NotNil(t, req.TotalORTime)
	assert.InDelta(t, 95.5, *req.TotalORTime, 1e-9)
}

func TestRenderScheduleGroupsByDay(t *testing.T) {
	mon := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	tue := time.Date(2024, 6, 4, 9, 30, 0, 0, time.UTC)
	resp := &dto.ScheduleResponse{
		RunID:        "run-1",
		HorizonStart: "2024-06-03",
		Schedule: []dto.ScheduledSurgery{
			{CaseID: "B", ScheduledDate: "2024-06-04", ScheduledTime: "09:30", StartTime: tue, EndTime: tue.Add(time.Hour), OperatingRoom: 1, DelayRisk: "Low"},
			{CaseID: "A", ScheduledDate: "2024-06-03", ScheduledTime: "08:00", StartTime: mon, EndTime: mon.Add(90 * time.Minute), OperatingRoom: 2, DelayRisk: "High"},
		},
		Unplaced: []dto.UnplacedSurgery{{CaseID: "C", SurgeryType: "Neuro", Reason: "no_capacity"}},
		Stats:    dto.ScheduleStats{Cases: 3, Placed: 2, Unplaced: 1, SlotsTotal: 90, SlotsUsed: 5, Utilization: 0.0556},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSchedule(&buf, resp))
	out := buf.String()

	monIdx := bytes.Index(buf.Bytes(), []byte("2024-06-03 (Monday)"))
	tueIdx := bytes.Index(buf.Bytes(), []byte("2024-06-04 (Tuesday)"))
	require.NotEqual(t, -1, monIdx)
	require.NotEqual(t, -1, tueIdx)
	assert.Less(t, monIdx, tueIdx)
	assert.Contains(t, out, "08:00-09:30")
	assert.Contains(t, out, "Unplaced (1)")
	assert.Contains(t, out, "no_capacity")
	assert.Contains(t, out, "Placed 2 of 3")
}

func TestParseRole(t *testing.T) {
	role, err := parseRole(" scheduler ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleScheduler, role)

	_, err = parseRole("nurse")
	assert.Error(t, err)
}

func TestRunScheduleFromYAML(t *testing.T) {
	loaded, err := config.Load()
	require.NoError(t, err)
	cfg = loaded
	cfg.Predictor.Mode = config.PredictorModeRules
	cfg.Predictor.CacheEnabled = false
	logr = zap.NewNop()

	dir := t.TempDir()
	input := filepath.Join(dir, "week.yaml")
	require.NoError(t, os.WriteFile(input, []byte(weekYAML), 0o600))

	scheduleInput, scheduleStart, scheduleRooms = input, "", 0
	scheduleFormat, scheduleExport, scheduleOut = "json", "csv", filepath.Join(dir, "week.csv")
	t.Cleanup(func() {
		scheduleInput, scheduleFormat, scheduleExport, scheduleOut = "", "table", "", ""
	})

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, runSchedule(cmd, nil))

	assert.Contains(t, out.String(), `"case_id": "A"`)
	assert.Contains(t, out.String(), `"case_id": "B"`)

	exported, err := os.ReadFile(scheduleOut)
	require.NoError(t, err)
	assert.NotEmpty(t, exported)
}

func TestRunScheduleExportNeedsDestination(t *testing.T) {
	scheduleExport, scheduleOut = "pdf", ""
	t.Cleanup(func() { scheduleExport = "" })
	err := runSchedule(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}
