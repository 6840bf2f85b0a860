package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/or-scheduler-api/internal/service"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the CSV import template",
	RunE:  runTemplate,
}

var templateOut string

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVar(&templateOut, "out", "", "Destination file, defaults to stdout")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	name, body, err := service.NewImportService(nil, nil, logr).Template()
	if err != nil {
		return err
	}
	if templateOut == "" {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(templateOut, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", templateOut, err)
	}
	logr.Sugar().Infow("template written", "path", templateOut, "name", name)
	return nil
}
