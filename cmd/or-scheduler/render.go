package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
)

// renderSchedule prints placed cases grouped by day, then the unplaced list.
func renderSchedule(w io.Writer, resp *dto.ScheduleResponse) error {
	rows := append([]dto.ScheduledSurgery(nil), resp.Schedule...)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].StartTime.Equal(rows[j].StartTime) {
			return rows[i].StartTime.Before(rows[j].StartTime)
		}
		return rows[i].OperatingRoom < rows[j].OperatingRoom
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %s, week of %s\n", resp.RunID, resp.HorizonStart)
	day := ""
	for _, row := range rows {
		if row.ScheduledDate != day {
			day = row.ScheduledDate
			fmt.Fprintf(tw, "\n%s (%s)\n", day, row.StartTime.Weekday())
			fmt.Fprintln(tw, "  TIME\tOR\tCASE\tTYPE\tAGE\tMIN\tRISK\tSCORE")
		}
		fmt.Fprintf(tw, "  %s-%s\tOR %d\t%s\t%s\t%d\t%.0f\t%s\t%d\n",
			row.ScheduledTime, row.EndTime.Format("15:04"), row.OperatingRoom, row.CaseID,
			row.SurgeryType, row.PatientAge, row.EstimatedDuration, row.DelayRisk, row.Score)
	}
	if len(rows) == 0 {
		fmt.Fprintln(tw, "\nNo cases placed.")
	}

	if len(resp.Unplaced) > 0 {
		fmt.Fprintf(tw, "\nUnplaced (%d)\n", len(resp.Unplaced))
		fmt.Fprintln(tw, "  CASE\tTYPE\tREASON\tDETAIL")
		for _, u := range resp.Unplaced {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", u.CaseID, u.SurgeryType, u.Reason, u.Detail)
		}
	}

	fmt.Fprintf(tw, "\nPlaced %d of %d, %d/%d slots used (%.1f%%)\n",
		resp.Stats.Placed, resp.Stats.Cases, resp.Stats.SlotsUsed, resp.Stats.SlotsTotal, resp.Stats.Utilization*100)
	return tw.Flush()
}

func renderPrediction(w io.Writer, resp *dto.PredictionResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Predicted duration\t%.1f min\n", resp.PredictedDuration)
	fmt.Fprintf(tw, "Duration range\t%s\n", resp.DurationRange)
	fmt.Fprintf(tw, "Delay probability\t%.2f\n", resp.DelayProbability)
	fmt.Fprintf(tw, "Predicted delay\t%s\n", resp.PredictedDelay)
	return tw.Flush()
}
