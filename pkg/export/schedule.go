package export

import (
	"strconv"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// Schedule export columns.
const (
	ColumnDate         = "Date"
	ColumnTime         = "Time"
	ColumnRoom         = "OR"
	ColumnSurgeryType  = "Surgery Type"
	ColumnSurgeon      = "Surgeon"
	ColumnPatientAge   = "Patient Age"
	ColumnDuration     = "Duration (min)"
	ColumnDelayRisk    = "Delay Risk"
	ColumnOriginalTime = "Original Time"
)

// ScheduleHeaders lists the schedule columns in output order.
var ScheduleHeaders = []string{
	ColumnDate, ColumnTime, ColumnRoom, ColumnSurgeryType, ColumnSurgeon,
	ColumnPatientAge, ColumnDuration, ColumnDelayRisk, ColumnOriginalTime,
}

// ScheduleDataset flattens a schedule into one row per assignment, keeping the
// order it is given in.
func ScheduleDataset(title string, schedule []models.ScheduledAssignment) Dataset {
	rows := make([]map[string]string, 0, len(schedule))
	for _, a := range schedule {
		rows = append(rows, map[string]string{
			ColumnDate:         a.StartTime.Format("2006-01-02"),
			ColumnTime:         a.StartTime.Format("15:04"),
			ColumnRoom:         strconv.Itoa(a.Room),
			ColumnSurgeryType:  a.Surgery.SurgeryType,
			ColumnSurgeon:      a.Surgery.Surgeon,
			ColumnPatientAge:   strconv.Itoa(a.Surgery.PatientAge),
			ColumnDuration:     strconv.FormatFloat(a.EstimatedDurationMinutes, 'f', 1, 64),
			ColumnDelayRisk:    string(a.DelayRisk),
			ColumnOriginalTime: a.OriginalTime.Format("2006-01-02 15:04"),
		})
	}
	return Dataset{Title: title, Headers: ScheduleHeaders, Rows: rows}
}
