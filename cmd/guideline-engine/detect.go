// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/guideline-engine/internal/detect"
	"github.com/pdiddy/guideline-engine/internal/pipeline"
)

var detectCmd = &cobra.Command{
	Use:   "detect <documents-dir>",
	Short: "Detect per-document settings and write a manifest",
	Long: `Detect scans each subdirectory of documents-dir for converted guideline
and supplement XML, guesses the citation version, chart format
and left margins of each guideline, and prints a manifest for parse.
Review the detected values before parsing; format C font selectors are never
detected.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringP("out", "o", "", "write the manifest to this file instead of stdout")

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	m, err := detect.Directory(args[0])
	if err != nil {
		return err
	}
	if len(m.Documents) == 0 {
		return fmt.Errorf("no guideline XML found under %s", args[0])
	}

	for _, d := range m.Documents {
		fmt.Fprintf(os.Stderr, "detected %s (format %s, citations %d, left %d/%d)\n",
			d.Name, d.ChartFormat, d.CitationVersion, d.Thresholds.LeftDown, d.Thresholds.LeftUp)
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := pipeline.SaveManifest(out, m); err != nil {
			return err
		}
		fmt.Println("Wrote", out)
		return nil
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(m)
}
