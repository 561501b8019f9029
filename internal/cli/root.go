package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "retention",
	Short:        "Emotion-aware churn scoring and retention recommendations",
	Long:         "Retention classifies the emotion in a customer message, scores churn risk against recent history, and recommends a retention action.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "retention.yaml", "path to YAML config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(cleanupCmd)
}
