package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/predictor"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	"github.com/noah-isme/or-scheduler-api/internal/service"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Build a weekly schedule from a case file",
	Long:  "Read surgeries from a YAML, JSON or CSV file and place them into operating-room slots for one week",
	Example: `  or-scheduler schedule --input cases.yaml --start 2024-06-03
  or-scheduler schedule --input cases.csv --rooms 4 --export pdf --out week.pdf`,
	RunE: runSchedule,
}

var (
	scheduleInput  string
	scheduleStart  string
	scheduleRooms  int
	scheduleFormat string
	scheduleExport string
	scheduleOut    string
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&scheduleInput, "input", "i", "", "Case file (.yaml, .json or .csv), - for stdin (required)")
	scheduleCmd.Flags().StringVar(&scheduleStart, "start", "", "First day of the horizon, YYYY-MM-DD")
	scheduleCmd.Flags().IntVar(&scheduleRooms, "rooms", 0, "Override the number of operating rooms")
	scheduleCmd.Flags().StringVarP(&scheduleFormat, "output", "o", "table", "Output format: table or json")
	scheduleCmd.Flags().StringVar(&scheduleExport, "export", "", "Also export the schedule as csv or pdf")
	scheduleCmd.Flags().StringVar(&scheduleOut, "out", "", "Export destination file")
	_ = scheduleCmd.MarkFlagRequired("input")
}

func newScheduleService() (*service.SurgeryScheduleService, *scheduler.Config, error) {
	defaults, err := scheduler.FromSettings(cfg.Scheduler)
	if err != nil {
		return nil, nil, err
	}
	pred, err := predictor.New(cfg.Predictor, nil, logr)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewSurgeryScheduleService(scheduler.NewBuilder(pred, logr), nil, nil, nil, nil, nil, logr, service.SurgeryScheduleConfig{
		Defaults:  defaults,
		Timeout:   cfg.Scheduler.Timeout,
		ResultTTL: cfg.Scheduler.ResultTTL,
	})
	return svc, &defaults, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if scheduleExport != "" && scheduleOut == "" {
		return fmt.Errorf("--export requires --out")
	}
	svc, defaults, err := newScheduleService()
	if err != nil {
		return err
	}
	raw, err := readFile(scheduleInput)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var resp *dto.ScheduleResponse
	if isCSV(scheduleInput) {
		resp, err = scheduleFromCSV(ctx, svc, defaults, raw)
	} else {
		resp, err = scheduleFromDocument(ctx, svc, raw)
	}
	if err != nil {
		return err
	}

	if scheduleExport != "" {
		result, err := svc.Export(ctx, resp.RunID, scheduleExport)
		if err != nil {
			return err
		}
		if err := os.WriteFile(scheduleOut, result.Body, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		logr.Sugar().Infow("schedule exported", "path", scheduleOut, "format", scheduleExport)
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(scheduleFormat) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "table", "":
		return renderSchedule(out, resp)
	default:
		return fmt.Errorf("unknown output format %q", scheduleFormat)
	}
}

func scheduleFromDocument(ctx context.Context, svc *service.SurgeryScheduleService, raw []byte) (*dto.ScheduleResponse, error) {
	req, err := decodeScheduleRequest(raw)
	if err != nil {
		return nil, err
	}
	if scheduleStart != "" {
		req.StartDate = scheduleStart
	}
	if req.StartDate == "" {
		return nil, fmt.Errorf("a start date is required, pass --start or set start_date in the input")
	}
	if scheduleRooms > 0 {
		if req.Options == nil {
			req.Options = &dto.ScheduleOptions{}
		}
		rooms := scheduleRooms
		req.Options.Rooms = &rooms
	}
	return svc.Generate(ctx, req)
}

// scheduleFromCSV routes spreadsheet input through the batch importer so the
// CLI and the upload endpoint apply the same row rules.
func scheduleFromCSV(ctx context.Context, svc *service.SurgeryScheduleService, defaults *scheduler.Config, raw []byte) (*dto.ScheduleResponse, error) {
	var generator scheduleGenerator = svc
	if scheduleRooms > 0 {
		generator = roomOverride{next: svc, rooms: scheduleRooms}
	}

	importer := service.NewImportService(generator, defaults.Location, logr)
	result, err := importer.Import(ctx, bytes.NewReader(raw), scheduleStart)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		logr.Warn(msg)
	}
	return svc.Get(ctx, result.RunID)
}

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error)
}

// roomOverride applies --rooms to requests built by the importer.
type roomOverride struct {
	next  scheduleGenerator
	rooms int
}

func (r roomOverride) Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	if req.Options == nil {
		req.Options = &dto.ScheduleOptions{}
	}
	rooms := r.rooms
	req.Options.Rooms = &rooms
	return r.next.Generate(ctx, req)
}
