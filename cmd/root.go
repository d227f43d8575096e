// Package cmd provides CLI commands for the Loom task router.
package cmd

import (
	"github.com/spf13/cobra"
)

// Terminal color codes for rich output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGray   = "\033[90m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var (
	rootConfigPath string
	rootJSON       bool
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - a vector-space task router for agent swarms",
	Long: `Loom routes free-text tasks to the best-matching agent by embedding
task descriptions and agent competences into a shared vector space, then
executes them on a bounded concurrent worker pool.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&rootJSON, "json", false, "Output as JSON")
}
