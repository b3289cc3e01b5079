package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geotable-cli/internal/table"
	"github.com/sells-group/geotable-cli/internal/tier"
)

var validateCmd = &cobra.Command{
	Use:   "validate <artifact>",
	Short: "Re-check an artifact's lookup invariants",
	Long: `Loads an artifact and verifies the guarantees lookup clients depend on:
metadata consistent with the entry sequence, starts ascending, and no two
ranges overlapping. Exits non-zero on any violation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := table.Read(args[0])
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		violations := tier.CheckEntries(tbl.Entries)
		for _, v := range violations {
			fmt.Printf("overlap: [%d,%d] %s vs [%d,%d] %s\n",
				v.A.Start, v.A.End, v.A.Code, v.B.Start, v.B.End, v.B.Code)
		}
		if len(violations) > 0 {
			return eris.Errorf("validate: %d invariant violations in %s", len(violations), args[0])
		}

		fmt.Printf("%s: %d entries, sorted and disjoint\n", args[0], len(tbl.Entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
