package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/or-scheduler-api/internal/predictor"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	"github.com/noah-isme/or-scheduler-api/internal/service"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate duration and delay risk for one case",
	RunE:  runPredict,
}

var (
	predictInput  string
	predictFormat string
)

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "", "Case file (.yaml or .json), - for stdin (required)")
	predictCmd.Flags().StringVarP(&predictFormat, "output", "o", "table", "Output format: table or json")
	_ = predictCmd.MarkFlagRequired("input")
}

func runPredict(cmd *cobra.Command, args []string) error {
	defaults, err := scheduler.FromSettings(cfg.Scheduler)
	if err != nil {
		return err
	}
	pred, err := predictor.New(cfg.Predictor, nil, logr)
	if err != nil {
		return err
	}
	raw, err := readFile(predictInput)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	req, err := decodeSurgery(raw)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := service.NewPredictionService(pred, nil, defaults.Location, logr).Predict(ctx, req)
	if err != nil {
		return err
	}
	if predictFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return renderPrediction(cmd.OutOrStdout(), resp)
}
