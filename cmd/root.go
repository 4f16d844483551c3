package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "radreport",
	Short: "Radiology report assembly and QA pipeline",
	Long:  "Assembles structured radiology reports from case bundles with Claude, evaluates formulas on the calculator service, runs deterministic QA with self-healing, and routes each report to a review tier.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
