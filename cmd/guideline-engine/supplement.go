// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/guideline-engine/internal/evidence"
	"github.com/pdiddy/guideline-engine/internal/fragment"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

var supplementCmd = &cobra.Command{
	Use:   "supplement <supplement.xml>",
	Short: "Reconstruct the evidence tables of a data supplement",
	Long: `Supplement reads a converted data supplement, rebuilds its evidence
tables from fragment positions, maps every row onto named fields and prints
the records as JSON. Rows that match no schema are reported on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runSupplement,
}

func init() {
	supplementCmd.Flags().Int("version", 1, "supplement version: 1 to 4")
	supplementCmd.Flags().Int("row-field-gap", 0, "header clustering tolerance (default 60)")
	supplementCmd.Flags().Int("cell-tolerance", 0, "cell boundary tolerance (default 45)")
	supplementCmd.Flags().Int("left-up", 0, "minimum left of continuation fragments (default 110)")
	supplementCmd.Flags().Bool("tables", false, "print the reconstructed tables instead of records")

	rootCmd.AddCommand(supplementCmd)
}

func runSupplement(cmd *cobra.Command, args []string) error {
	v, _ := cmd.Flags().GetInt("version")
	version := types.SupplementVersion(v)
	if !version.Valid() {
		return fmt.Errorf("unknown supplement version %d: use 1 to 4", v)
	}
	var t types.Thresholds
	t.RowFieldGap, _ = cmd.Flags().GetInt("row-field-gap")
	t.CellTolerance, _ = cmd.Flags().GetInt("cell-tolerance")
	t.LeftUp, _ = cmd.Flags().GetInt("left-up")

	doc, err := fragment.Load(args[0])
	if err != nil {
		return err
	}
	res := evidence.Parse(doc.Fragments, evidence.Options{
		Version:    version,
		Thresholds: t,
		Logger:     newLogger(),
	})
	d := res.Diagnostics
	fmt.Fprintf(os.Stderr, "%d tables, %d records (%d schema mismatches, %d missing headers)\n",
		len(res.Tables), len(res.Records), d.SchemaMismatches, d.MissingHeaders)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if tables, _ := cmd.Flags().GetBool("tables"); tables {
		return enc.Encode(res.Tables)
	}
	return enc.Encode(res.Records)
}
