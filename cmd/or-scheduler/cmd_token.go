package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with JWT_SECRET",
	RunE:  runToken,
}

var (
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "Subject user ID (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleScheduler), "ADMIN, SCHEDULER, SURGEON or VIEWER")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}

func parseRole(raw string) (models.UserRole, error) {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case models.RoleAdmin, models.RoleScheduler, models.RoleSurgeon, models.RoleViewer:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

func runToken(cmd *cobra.Command, args []string) error {
	role, err := parseRole(tokenRole)
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		return err
	}
	signed, expires, err := tokens.Issue(tokenUser, role, tokenTTL)
	if err != nil {
		return err
	}
	logr.Sugar().Infow("token issued", "user", tokenUser, "role", role, "expires_at", expires.Format(time.RFC3339))
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
