package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geotable-cli/internal/config"
	"github.com/sells-group/geotable-cli/internal/pipeline"
	"github.com/sells-group/geotable-cli/internal/tier"
)

const timeRound = 10 * time.Millisecond

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the lookup-table artifact from the source feed",
	Long: `Downloads the GeoLite2-Country CSV archive, classifies every IPv4 block
into a precision tier, coalesces nearby ranges per tier, and writes the
assembled table atomically. The previous artifact is untouched unless the
whole build succeeds.

Use --source-dir to build from an already-extracted CSV directory without
downloading (no license key needed).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "build"))

		// Flags override config defaults.
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.Build.Output = out
		}
		if tempDir, _ := cmd.Flags().GetString("temp-dir"); tempDir != "" {
			cfg.Build.TempDir = tempDir
		}
		if keep, _ := cmd.Flags().GetBool("keep-temp"); keep {
			cfg.Build.KeepTemp = true
		}
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Build.Workers = workers
		}
		if auditDB, _ := cmd.Flags().GetString("audit-db"); auditDB != "" {
			cfg.Build.AuditDB = auditDB
		}

		tiers := tier.Default()
		if tiersFile, _ := cmd.Flags().GetString("tiers"); tiersFile != "" {
			t, err := config.LoadTiers(tiersFile)
			if err != nil {
				return err
			}
			tiers = t
		}

		sourceDir, _ := cmd.Flags().GetString("source-dir")

		log.Info("starting build",
			zap.Strings("tier1", tiers.Codes1()),
			zap.Strings("tier2", tiers.Codes2()),
			zap.String("catch_all", tiers.CatchAll),
			zap.String("output", cfg.Build.Output),
			zap.Int("workers", cfg.Build.Workers),
		)

		res, err := pipeline.Run(ctx, cfg, pipeline.Options{
			Tiers:     tiers,
			SourceDir: sourceDir,
		})
		if err != nil {
			return eris.Wrap(err, "build")
		}

		fmt.Printf("wrote %s: %d entries from %d rows in %s\n",
			res.Output, res.Entries, res.RowsRead, res.Duration.Round(timeRound))
		if res.Skips.Total() > 0 {
			fmt.Printf("skipped rows: %d unresolved, %d bad cidr, %d short\n",
				res.Skips.Unresolved, res.Skips.BadCIDR, res.Skips.ShortRow)
		}
		if res.Overlaps > 0 {
			fmt.Printf("warning: %d overlapping entries in output (source data quality)\n", res.Overlaps)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().String("output", "", "artifact path (default from config)")
	buildCmd.Flags().String("temp-dir", "", "working directory for the downloaded archive")
	buildCmd.Flags().Bool("keep-temp", false, "keep the working directory after the run")
	buildCmd.Flags().Int("workers", 0, "parallel merge workers (default from config)")
	buildCmd.Flags().String("tiers", "", "YAML tier-definition override file")
	buildCmd.Flags().String("audit-db", "", "sqlite path for the build audit trail")
	buildCmd.Flags().String("source-dir", "", "already-extracted CSV directory (skips download)")

	rootCmd.AddCommand(buildCmd)
}
