// Command projecthub runs the project assignment service and its tooling.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"projecthub/internal/config"
	pkgconfig "projecthub/pkg/config"
)

var (
	// version is overridden at build time with -ldflags "-X main.version=..."
	version = "dev"

	configEnv string
	configDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "projecthub",
	Short: "Project and team assignment service",
	Long: `projecthub manages projects, their responsible employee and team members.
Employees are validated against an external employee directory, and team
members cannot be booked on projects with overlapping dates.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configEnv, "env", pkgconfig.GetConfigEnv(), "config environment (loads <config-dir>/<env>.yaml over base.yaml)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "directory holding base.yaml and environment files")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configEnv, configDir)
}
