package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AryaBuddha/iclicker-evade/internal/output"
	"github.com/AryaBuddha/iclicker-evade/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "iclicker-evade",
	Short: "Join and monitor iClicker sessions automatically",
	Long:  "Logs into the iClicker student portal, joins a class session when it starts, and watches for questions so you can answer from the terminal.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format for listings: yaml, json")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		return nil
	}
}
