package main

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/geotable-cli/internal/store"
	"github.com/sells-group/geotable-cli/internal/table"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact>",
	Short: "Print artifact metadata and per-code interval counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := table.Read(args[0])
		if err != nil {
			return eris.Wrap(err, "inspect")
		}

		p := message.NewPrinter(language.English)

		p.Printf("version:    %s\n", tbl.Meta.Version)
		p.Printf("generated:  %s\n", tbl.Meta.Generated)
		p.Printf("entries:    %d\n", tbl.Meta.TotalRanges)
		p.Printf("tier1:      %v\n", tbl.Meta.Tier1)
		p.Printf("tier2:      %v\n", tbl.Meta.Tier2)
		p.Printf("catch-all:  %s\n", tbl.Meta.Other)

		counts := make(map[string]int)
		for _, e := range tbl.Entries {
			counts[e.Code]++
		}
		codes := make([]string, 0, len(counts))
		for code := range counts {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		p.Printf("\nintervals per code:\n")
		for _, code := range codes {
			p.Printf("  %s  %d\n", code, counts[code])
		}

		if auditDB, _ := cmd.Flags().GetString("audit-db"); auditDB != "" {
			if err := printLastBuild(cmd.Context(), p, auditDB); err != nil {
				return err
			}
		}

		return nil
	},
}

// printLastBuild shows the most recent audit record, including the tier-3
// per-country tallies that the artifact no longer carries.
func printLastBuild(ctx context.Context, p *message.Printer, auditDB string) error {
	s, err := store.Open(auditDB)
	if err != nil {
		return eris.Wrap(err, "inspect: open audit db")
	}
	defer s.Close() //nolint:errcheck

	rec, err := s.LastBuild(ctx)
	if err != nil {
		return eris.Wrap(err, "inspect: last build")
	}
	if rec == nil {
		p.Printf("\nno builds recorded in %s\n", auditDB)
		return nil
	}

	p.Printf("\nlast build %s (%s):\n", rec.ID, rec.Generated.Format("2006-01-02 15:04:05"))
	p.Printf("  rows read:  %d\n", rec.RowsRead)
	p.Printf("  entries:    %d\n", rec.Entries)
	p.Printf("  overlaps:   %d\n", rec.Overlaps)
	p.Printf("  skipped:    %d unresolved, %d bad cidr, %d short\n",
		rec.Skips.Unresolved, rec.Skips.BadCIDR, rec.Skips.ShortRow)
	for _, st := range rec.Stats {
		p.Printf("  tier%d %s: %d -> %d\n", int(st.Tier), st.Code, st.Raw, st.Merged)
	}

	return nil
}

func init() {
	inspectCmd.Flags().String("audit-db", "", "also show the latest build from this audit database")
	rootCmd.AddCommand(inspectCmd)
}
