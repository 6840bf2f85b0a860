package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/export"
)

// Batch import column names.
const (
	ColumnPatientAge       = "Patient Age"
	ColumnBMI              = "BMI"
	ColumnSurgeryType      = "Surgery Type"
	ColumnSurgeon          = "Surgeon"
	ColumnAnesthesiologist = "Anesthesiologist"
	ColumnNurse            = "Nurse"
	ColumnDayOfWeek        = "Day of Week"
	ColumnTimePreference   = "Time Preference"
	ColumnComorbidities    = "Comorbidities"
	ColumnInstrumentReady  = "Instrument Ready (Y/N)"
	ColumnPACUBedReady     = "PACU Bed Ready (Y/N)"

	ColumnPreOpPrep   = "Pre-op Prep Time (min)"
	ColumnTransfer    = "Transfer to OR Time (min)"
	ColumnAnesthesia  = "Anesthesia Time (min)"
	ColumnPositioning = "Positioning Time (min)"
	ColumnTotalOR     = "Total OR Time (min)"
)

// ImportColumns must all be present in the header row.
var ImportColumns = []string{
	ColumnPatientAge, ColumnBMI, ColumnSurgeryType, ColumnSurgeon,
	ColumnAnesthesiologist, ColumnNurse, ColumnDayOfWeek, ColumnTimePreference,
	ColumnComorbidities, ColumnInstrumentReady, ColumnPACUBedReady,
}

const (
	maxBannerRows = 3

	defaultBMI            = 25.0
	defaultName           = "Unknown"
	defaultDay            = "Monday"
	defaultComorbidities  = "None"
	defaultPreOpPrep      = 30
	defaultTransfer       = 15
	defaultAnesthesia     = 20
	defaultPositioning    = 10
	templateFilename      = "surgery_import_template.csv"
	importStartTimeLayout = "2006-01-02 15:04"
)

var preferenceHours = map[string]int{
	models.TimePreferenceMorning:      9,
	models.TimePreferenceAfternoon:    13,
	models.TimePreferenceNoPreference: 11,
}

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error)
}

// ImportService turns a spreadsheet export into a scheduling request.
type ImportService struct {
	generator scheduleGenerator
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService constructs the service. loc decides "today" when no start
// date is given.
func NewImportService(generator scheduleGenerator, loc *time.Location, logger *zap.Logger) *ImportService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{generator: generator, location: loc, logger: logger, now: time.Now}
}

// Import parses a CSV upload and schedules every usable row. Rows that cannot
// be used are reported in Errors and skipped.
func (s *ImportService) Import(ctx context.Context, r io.Reader, startDate string) (*dto.BatchImportResponse, error) {
	startDate = strings.TrimSpace(startDate)
	if startDate == "" {
		startDate = s.now().In(s.location).Format(dateLayout)
	}
	start, err := parseDate(startDate, s.location)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, use YYYY-MM-DD")
	}

	header, records, err := readImportTable(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the uploaded file contains no data")
	}

	surgeries := make([]dto.SurgeryRequest, 0, len(records))
	rowErrors := []string{}
	for i, record := range records {
		// Row numbers count the header as row 1.
		rowNum := i + 2
		row := newImportRow(header, record)
		if row.empty(ColumnPatientAge) || row.empty(ColumnSurgeryType) {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Skipped due to missing required values", rowNum))
			continue
		}
		req, err := row.surgery(start)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Error in row %d: %v", rowNum, err))
			continue
		}
		req.ID = fmt.Sprintf("row-%d", rowNum)
		surgeries = append(surgeries, req)
	}
	if len(surgeries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid surgeries found in the file")
	}
	if len(surgeries) > MaxSurgeriesPerRun {
		return nil, errTooManySurgeries()
	}

	resp, err := s.generator.Generate(ctx, dto.ScheduleRequest{Surgeries: surgeries, StartDate: startDate})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch import scheduled",
		zap.Int("rows", len(records)),
		zap.Int("imported", len(surgeries)),
		zap.Int("row_errors", len(rowErrors)),
	)
	return &dto.BatchImportResponse{
		ImportedCount: len(surgeries),
		RunID:         resp.RunID,
		Schedule:      resp.Schedule,
		Unplaced:      resp.Unplaced,
		Errors:        rowErrors,
	}, nil
}

// Template renders the import template with two sample rows.
func (s *ImportService) Template() (string, []byte, error) {
	data := export.Dataset{
		Headers: ImportColumns,
		Rows: []map[string]string{
			{
				ColumnPatientAge: "45", ColumnBMI: "24.5", ColumnSurgeryType: "Hip Replacement",
				ColumnSurgeon: "Dr. Smith", ColumnAnesthesiologist: "Dr. Brown", ColumnNurse: "Nurse A",
				ColumnDayOfWeek: "Monday", ColumnTimePreference: models.TimePreferenceMorning,
				ColumnComorbidities: "Hypertension", ColumnInstrumentReady: "Y", ColumnPACUBedReady: "Y",
			},
			{
				ColumnPatientAge: "65", ColumnBMI: "30.2", ColumnSurgeryType: "Knee Replacement",
				ColumnSurgeon: "Dr. Johnson", ColumnAnesthesiologist: "Dr. Davis", ColumnNurse: "Nurse B",
				ColumnDayOfWeek: "Tuesday", ColumnTimePreference: models.TimePreferenceAfternoon,
				ColumnComorbidities: "Diabetes", ColumnInstrumentReady: "Y", ColumnPACUBedReady: "Y",
			},
		},
	}
	body, err := export.NewCSVExporter().Render(data)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return templateFilename, body, nil
}

// readImportTable locates the header among the first rows and returns the
// data rows below it. Blank lines are dropped.
func readImportTable(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid CSV file")
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "the uploaded file contains no data")
	}

	var missing []string
	for i := 0; i <= maxBannerRows && i < len(rows); i++ {
		header := indexHeader(rows[i])
		missing = missingColumns(header)
		if len(missing) == 0 {
			return header, rows[i+1:], nil
		}
	}
	return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("could not find a header row with the required columns, missing: %s", strings.Join(missing, ", ")))
}

func indexHeader(record []string) map[string]int {
	header := make(map[string]int, len(record))
	for i, name := range record {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := header[name]; !dup && name != "" {
			header[name] = i
		}
	}
	return header
}

func missingColumns(header map[string]int) []string {
	var missing []string
	for _, col := range ImportColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type importRow struct {
	header map[string]int
	record []string
}

func newImportRow(header map[string]int, record []string) importRow {
	return importRow{header: header, record: record}
}

func (r importRow) value(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	v := strings.TrimSpace(r.record[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

func (r importRow) empty(col string) bool {
	return r.value(col) == ""
}

func (r importRow) text(col, fallback string) string {
	if v := r.value(col); v != "" {
		return v
	}
	return fallback
}

func (r importRow) number(col string, fallback float64) (float64, error) {
	v := r.value(col)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", col, v)
	}
	return n, nil
}

// surgery applies the import defaults and derives the preferred start from
// the day of week and time preference.
func (r importRow) surgery(weekStart time.Time) (dto.SurgeryRequest, error) {
	age, err := r.number(ColumnPatientAge, 0)
	if err != nil {
		return dto.SurgeryRequest{}, err
	}
	if age < 0 || age > 120 {
		return dto.SurgeryRequest{}, fmt.Errorf("patient age %v out of range", age)
	}
	bmi, err := r.number(ColumnBMI, defaultBMI)
	if err != nil {
		return dto.SurgeryRequest{}, err
	}
	if bmi < 0 || bmi > 100 {
		return dto.SurgeryRequest{}, fmt.Errorf("BMI %v out of range", bmi)
	}

	day := r.text(ColumnDayOfWeek, defaultDay)
	weekday, err := parseDayName(day)
	if err != nil {
		return dto.SurgeryRequest{}, err
	}
	preference := r.text(ColumnTimePreference, models.TimePreferenceMorning)
	hour, ok := preferenceHours[preference]
	if !ok {
		hour = preferenceHours[models.TimePreferenceNoPreference]
	}
	offset := (int(weekday) - int(weekStart.Weekday()) + 7) % 7
	preferred := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day()+offset, hour, 0, 0, 0, weekStart.Location())

	req := dto.SurgeryRequest{
		PatientAge:       int(age),
		BMI:              bmi,
		SurgeryType:      r.value(ColumnSurgeryType),
		Surgeon:          r.text(ColumnSurgeon, defaultName),
		Anesthesiologist: r.text(ColumnAnesthesiologist, defaultName),
		Nurse:            r.text(ColumnNurse, defaultName),
		DayOfWeek:        day,
		TimePreference:   preference,
		Comorbidities:    r.text(ColumnComorbidities, defaultComorbidities),
		InstrumentReady:  yesNo(r.text(ColumnInstrumentReady, "Y")),
		PACUBedReady:     yesNo(r.text(ColumnPACUBedReady, "Y")),
		ScheduledStart:   preferred.Format(importStartTimeLayout),
	}

	prep := []struct {
		col      string
		fallback float64
		dst      *float64
	}{
		{ColumnPreOpPrep, defaultPreOpPrep, &req.PreOpPrepTime},
		{ColumnTransfer, defaultTransfer, &req.TransferToORTime},
		{ColumnAnesthesia, defaultAnesthesia, &req.AnesthesiaTime},
		{ColumnPositioning, defaultPositioning, &req.PositioningTime},
	}
	for _, p := range prep {
		v, err := r.number(p.col, p.fallback)
		if err != nil {
			return dto.SurgeryRequest{}, err
		}
		if v < 0 {
			return dto.SurgeryRequest{}, fmt.Errorf("%s %v cannot be negative", p.col, v)
		}
		*p.dst = v
	}
	if !r.empty(ColumnTotalOR) {
		total, err := r.number(ColumnTotalOR, 0)
		if err != nil {
			return dto.SurgeryRequest{}, err
		}
		req.TotalORTime = &total
	}
	return req, nil
}

func yesNo(raw string) string {
	if parseYesNo(raw) {
		return "Y"
	}
	return "N"
}

func parseDayName(raw string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(raw, name) || strings.EqualFold(raw, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", raw)
}
