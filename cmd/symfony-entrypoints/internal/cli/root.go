// Package cli implements the symfony-entrypoints command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lhapaipai/vite-plugin-symfony/internal/log"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/config"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	dir       string
}

var rootCmd = &cobra.Command{
	Use:   "symfony-entrypoints",
	Short: "Entrypoints manifest generator for Vite and Symfony",
	Long: `symfony-entrypoints turns the bundle reports of a Vite build into the
entrypoints manifest (.vite/entrypoints.json) that the Symfony bundle uses to
render script, stylesheet and preload tags.

Entrypoints are declared in symfony-entrypoints.toml:

  base = "/build/"

  [input]
  app = "./assets/app.js"
  theme = "./assets/theme.scss"`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.dir, "dir", "C", "",
		"Project directory (default: current directory)")

	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger once flags are parsed.
func initLogging() {
	log.Init(globalFlags.verbosity, globalFlags.logFormat)
}

// loadConfig loads the layered configuration for the selected project.
func loadConfig() (*config.Config, error) {
	if globalFlags.dir == "" {
		return config.Load()
	}
	info, err := os.Stat(globalFlags.dir)
	if err != nil {
		return nil, fmt.Errorf("invalid project directory %s: %w", globalFlags.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path must be a directory: %s", globalFlags.dir)
	}
	return config.LoadFrom(globalFlags.dir)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
