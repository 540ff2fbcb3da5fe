// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/guideline-engine/internal/pipeline"
	"github.com/pdiddy/guideline-engine/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <artifact-dir | document-name>",
	Short: "Render a parsed document's charts as Markdown or HTML",
	Long: `Report reads the charts and references of a parsed document and writes
report.md or report.html next to its artifacts: one section per chart with a
table of class, level of evidence, text and citations. Citations missing
from the reference list are marked unresolved.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("format", "html", "report format: md or html")
	reportCmd.Flags().StringP("out", "o", "", "output file (default: report.<format> in the artifact directory)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	dir := artifactDirArg(args[0])
	res, err := pipeline.ReadArtifacts(dir)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	var data []byte
	switch format {
	case "md", "markdown":
		format = "md"
		data = report.Markdown(res.Name, res.Charts, res.References)
	case "html":
		data, err = report.HTML(res.Name, res.Charts, res.References)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use md or html", format)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(dir, "report."+format)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Println("Wrote", out)
	return nil
}
