package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"projecthub/pkg/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed development token",
	Long: `Sign an HS256 token with jwt.secret for local testing. The output is a
complete Authorization header value.

Examples:
  projecthub token --subject 42
  curl -H "Authorization: $(projecthub token --subject 42)" localhost:8080/projects`,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured")
	}

	token, err := auth.GenerateJWT(tokenSubject, cfg.JWT.Secret, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bearer %s\n", token)
	return nil
}
