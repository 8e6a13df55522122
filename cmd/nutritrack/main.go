// cmd/nutritrack/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"nutritrack/internal/common/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "nutritrack",
		Short:         "Nutrition targets and personalized dining hall menu recommendations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default configs/config.yaml)")

	root.AddCommand(
		newRecommendCmd(&configPath),
		newCalculateCmd(),
		newServeCmd(&configPath),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
