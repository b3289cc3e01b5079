package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geotable-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geotable",
	Short: "Tiered IP-to-region lookup table builder",
	Long:  "Builds a compact IPv4-to-region lookup table from the GeoLite2-Country CSV feed by coalescing address ranges per precision tier, and writes it as a single immutable JSON artifact.",
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
