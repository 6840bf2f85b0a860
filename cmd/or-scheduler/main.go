package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/pkg/config"
	"github.com/noah-isme/or-scheduler-api/pkg/logger"
)

var (
	cfg     *config.Config
	logr    *zap.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "or-scheduler",
	Short:         "Operating-room schedule planner",
	Long:          "Build weekly operating-room schedules, score single cases and issue API tokens from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logr != nil {
			_ = logr.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func setup() error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	l, err := logger.NewCLI(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logr = l
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
