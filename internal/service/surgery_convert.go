package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseDate reads a YYYY-MM-DD date as midnight in loc.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("start_date %q must use YYYY-MM-DD", raw))
	}
	return t, nil
}

// parseStart accepts RFC3339 and the common local date-time layouts. Values
// without an offset are read in loc.
func parseStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", raw)
}

func parseYesNo(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "N", "NO", "FALSE":
		return false
	default:
		return true
	}
}

// toSurgery converts a request row. Missing IDs get a generated one.
func toSurgery(req dto.SurgeryRequest, loc *time.Location) (models.Surgery, error) {
	start, err := parseStart(req.ScheduledStart, loc)
	if err != nil {
		return models.Surgery{}, err
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	s := models.Surgery{
		ID:                 id,
		PatientAge:         req.PatientAge,
		BMI:                req.BMI,
		SurgeryType:        strings.TrimSpace(req.SurgeryType),
		Surgeon:            req.Surgeon,
		Anesthesiologist:   req.Anesthesiologist,
		Nurse:              req.Nurse,
		Comorbidities:      req.Comorbidities,
		DayOfWeek:          req.DayOfWeek,
		TimePreference:     req.TimePreference,
		InstrumentReady:    parseYesNo(req.InstrumentReady),
		PACUBedReady:       parseYesNo(req.PACUBedReady),
		PreOpPrepMinutes:   req.PreOpPrepTime,
		TransferMinutes:    req.TransferToORTime,
		AnesthesiaMinutes:  req.AnesthesiaTime,
		PositioningMinutes: req.PositioningTime,
		ScheduledStart:     start,
	}
	if req.TotalORTime != nil && !math.IsNaN(*req.TotalORTime) {
		total := *req.TotalORTime
		s.TotalORMinutes = &total
	}
	return s, nil
}

func toSurgeries(reqs []dto.SurgeryRequest, loc *time.Location) ([]models.Surgery, error) {
	out := make([]models.Surgery, 0, len(reqs))
	for i, req := range reqs {
		s, err := toSurgery(req, loc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("surgeries[%d].scheduled_start is invalid", i))
		}
		out = append(out, s)
	}
	return out, nil
}

// mergeConfig lays per-request overrides over the configured defaults. The
// merged config is validated by the scheduler itself.
func mergeConfig(base scheduler.Config, opts *dto.ScheduleOptions) (scheduler.Config, error) {
	cfg := base
	cfg.Weekdays = append([]time.Weekday(nil), base.Weekdays...)
	if opts == nil {
		return cfg, nil
	}
	if opts.Rooms != nil {
		cfg.Rooms = *opts.Rooms
	}
	if opts.StartHour != nil {
		cfg.StartHour = *opts.StartHour
	}
	if opts.EndHour != nil {
		cfg.EndHour = *opts.EndHour
	}
	if opts.SlotMinutes != nil {
		cfg.SlotMinutes = *opts.SlotMinutes
	}
	if opts.CleanupMinutes != nil {
		cfg.CleanupMinutes = *opts.CleanupMinutes
	}
	if opts.HorizonDays != nil {
		cfg.HorizonDays = *opts.HorizonDays
	}
	if len(opts.Weekdays) > 0 {
		days, err := scheduler.ParseWeekdays(opts.Weekdays)
		if err != nil {
			return scheduler.Config{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "options.weekdays is invalid")
		}
		cfg.Weekdays = days
	}
	if tz := strings.TrimSpace(opts.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return scheduler.Config{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown timezone %q", tz))
		}
		cfg.Location = loc
	}
	return cfg, nil
}

func toScheduledSurgery(a models.ScheduledAssignment, slotMinutes int) dto.ScheduledSurgery {
	return dto.ScheduledSurgery{
		CaseID:            a.Surgery.ID,
		SurgeryType:       a.Surgery.SurgeryType,
		PatientAge:        a.Surgery.PatientAge,
		Surgeon:           a.Surgery.Surgeon,
		ScheduledDate:     a.StartTime.Format(dateLayout),
		ScheduledTime:     a.StartTime.Format(timeLayout),
		OperatingRoom:     a.Room,
		EstimatedDuration: a.EstimatedDurationMinutes,
		DelayRisk:         string(a.DelayRisk),
		OriginalTime:      a.OriginalTime.Format(dateLayout + " " + timeLayout),
		StartTime:         a.StartTime,
		EndTime:           a.EndTime(slotMinutes),
		SlotCount:         a.SlotCount,
		Score:             a.Score,
	}
}

func toUnplacedSurgery(p models.Placement) dto.UnplacedSurgery {
	return dto.UnplacedSurgery{
		CaseID:      p.Surgery.ID,
		SurgeryType: p.Surgery.SurgeryType,
		PatientAge:  p.Surgery.PatientAge,
		Reason:      string(p.Reason),
		Detail:      p.Detail,
	}
}

// scheduleResponse renders a pass result. The unplaced list follows input order.
func scheduleResponse(runID string, result *scheduler.Result, elapsed time.Duration) *dto.ScheduleResponse {
	slotMinutes := result.Config.SlotMinutes
	resp := &dto.ScheduleResponse{
		RunID:        runID,
		HorizonStart: result.HorizonStart.Format(dateLayout),
		Schedule:     make([]dto.ScheduledSurgery, 0, len(result.Schedule)),
		Unplaced:     []dto.UnplacedSurgery{},
	}
	for _, a := range result.Schedule {
		resp.Schedule = append(resp.Schedule, toScheduledSurgery(a, slotMinutes))
	}
	for _, p := range result.Unplaced() {
		resp.Unplaced = append(resp.Unplaced, toUnplacedSurgery(p))
	}

	resp.Stats = dto.ScheduleStats{
		Cases:      len(result.Placements),
		Placed:     len(resp.Schedule),
		Unplaced:   len(resp.Unplaced),
		SlotsTotal: result.SlotsTotal,
		SlotsUsed:  result.SlotsUsed,
		DurationMS: elapsed.Milliseconds(),
	}
	if result.SlotsTotal > 0 {
		resp.Stats.Utilization = math.Round(float64(result.SlotsUsed)/float64(result.SlotsTotal)*10000) / 10000
	}
	return resp
}

// assignmentFromRow rebuilds a schedule entry from a persisted row so stored
// runs can be exported the same way as fresh ones.
func assignmentFromRow(row models.ScheduleRunAssignment) models.ScheduledAssignment {
	y, m, d := row.StartTime.Date()
	return models.ScheduledAssignment{
		Surgery: models.Surgery{
			ID:             row.CaseID,
			SurgeryType:    row.SurgeryType,
			Surgeon:        row.Surgeon,
			PatientAge:     row.PatientAge,
			ScheduledStart: row.OriginalTime,
		},
		Date:                     time.Date(y, m, d, 0, 0, 0, 0, row.StartTime.Location()),
		StartTime:                row.StartTime,
		Room:                     row.Room,
		EstimatedDurationMinutes: row.EstimatedDurationMinutes,
		DelayRisk:                row.DelayRisk,
		OriginalTime:             row.OriginalTime,
		Score:                    row.Score,
	}
}

func scheduledSurgeryFromRow(row models.ScheduleRunAssignment) dto.ScheduledSurgery {
	return dto.ScheduledSurgery{
		CaseID:            row.CaseID,
		SurgeryType:       row.SurgeryType,
		PatientAge:        row.PatientAge,
		Surgeon:           row.Surgeon,
		ScheduledDate:     row.StartTime.Format(dateLayout),
		ScheduledTime:     row.StartTime.Format(timeLayout),
		OperatingRoom:     row.Room,
		EstimatedDuration: row.EstimatedDurationMinutes,
		DelayRisk:         string(row.DelayRisk),
		OriginalTime:      row.OriginalTime.Format(dateLayout + " " + timeLayout),
		StartTime:         row.StartTime,
		EndTime:           row.EndTime,
		Score:             row.Score,
	}
}
