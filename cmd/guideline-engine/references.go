// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/internal/fragment"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

var referencesCmd = &cobra.Command{
	Use:   "references <guideline.xml>",
	Short: "Extract the reference list of a guideline",
	Long: `References reads a converted guideline and prints its bibliography as a
JSON object mapping each in-text citation key to its reference text.
Version 1 documents use S-prefixed keys; version 2 documents use numbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runReferences,
}

func init() {
	referencesCmd.Flags().Int("citations", 1, "citation version: 1 (sectioned) or 2 (numeric)")
	referencesCmd.Flags().Bool("entries", false, "print the ordered entry list instead of the key map")

	rootCmd.AddCommand(referencesCmd)
}

func runReferences(cmd *cobra.Command, args []string) error {
	v, _ := cmd.Flags().GetInt("citations")
	version := types.CitationVersion(v)
	if !version.Valid() {
		return fmt.Errorf("unknown citation version %d: use 1 or 2", v)
	}

	doc, err := fragment.Load(args[0])
	if err != nil {
		return err
	}
	table := citation.ExtractReferences(doc.Fragments, version)
	fmt.Fprintf(os.Stderr, "%d references\n", table.Len())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if entries, _ := cmd.Flags().GetBool("entries"); entries {
		return enc.Encode(table.Entries)
	}
	return enc.Encode(table.Map())
}
