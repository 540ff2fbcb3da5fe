// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/guideline-engine/internal/detect"
	"github.com/pdiddy/guideline-engine/internal/pipeline"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse <manifest.yaml | document-dir>",
	Short: "Extract charts, references and evidence from guideline documents",
	Long: `Parse runs the full extraction for each document: chart segmentation,
reference list extraction, evidence table reconstruction and, with --merge,
the PubMed join of recommendations to evidence.

The argument is either a YAML manifest listing documents, or a directory
whose subdirectories are detected as documents (see detect). Each
document's artifacts are written to <output-dir>/<name>/. Documents whose
artifacts exist are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("format", "", "override chart format for every document: A, B or C")
	parseCmd.Flags().Int("citations", 0, "override citation version: 1 (sectioned) or 2 (numeric)")
	parseCmd.Flags().Int("supplement-version", 0, "override data supplement version: 1 to 4")
	parseCmd.Flags().Bool("merge", false, "join rows to evidence through PubMed and write merged.json")
	parseCmd.Flags().Bool("abstracts", true, "with --merge, fetch abstracts for identifiers without evidence rows")
	parseCmd.Flags().Bool("force", false, "re-parse documents whose artifacts exist")
	parseCmd.Flags().Bool("store", false, "ingest parsed documents into the results store")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	docs, err := loadDocuments(args[0])
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, docs); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger()
	opts := pipeline.Options{
		OutputDir: viper.GetString("output_dir"),
		Workers:   viper.GetInt("workers"),
		Logger:    log,
	}
	opts.Force, _ = cmd.Flags().GetBool("force")
	if doMerge, _ := cmd.Flags().GetBool("merge"); doMerge {
		abstracts, _ := cmd.Flags().GetBool("abstracts")
		opts.Merger = newMerger(abstracts, log)
	}

	summary := pipeline.ProcessBatch(ctx, docs, opts, os.Stdout)

	if ingest, _ := cmd.Flags().GetBool("store"); ingest {
		dirs := make([]string, 0, len(docs))
		for _, d := range docs {
			dirs = append(dirs, pipeline.ArtifactDir(d, opts))
		}
		if err := ingestDirs(ctx, dirs); err != nil {
			return err
		}
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed parsing", summary.Failed)
	}
	return nil
}

// loadDocuments reads a manifest file, or detects the layout of a
// document directory.
func loadDocuments(arg string) ([]types.DocumentConfig, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", arg, err)
	}
	if !info.IsDir() {
		m, err := pipeline.LoadManifest(arg)
		if err != nil {
			return nil, err
		}
		if len(m.Documents) == 0 {
			return nil, fmt.Errorf("manifest %s lists no documents", arg)
		}
		return m.Documents, nil
	}
	m, err := detect.Directory(arg)
	if err != nil {
		return nil, err
	}
	return m.Documents, nil
}

func applyOverrides(cmd *cobra.Command, docs []types.DocumentConfig) error {
	format, _ := cmd.Flags().GetString("format")
	citations, _ := cmd.Flags().GetInt("citations")
	supplement, _ := cmd.Flags().GetInt("supplement-version")

	for i := range docs {
		if format != "" {
			docs[i].ChartFormat = types.ChartFormat(strings.ToUpper(format))
		}
		if citations != 0 {
			docs[i].CitationVersion = types.CitationVersion(citations)
		}
		if supplement != 0 {
			docs[i].SupplementVersion = types.SupplementVersion(supplement)
		}
		if err := pipeline.Validate(pipeline.Normalize(docs[i])); err != nil {
			return err
		}
	}
	return nil
}

// artifactDirArg resolves a command argument naming either an artifact
// directory or a document name under the output directory.
func artifactDirArg(arg string) string {
	if _, err := os.Stat(filepath.Join(arg, pipeline.ChartsFile)); err == nil {
		return arg
	}
	return filepath.Join(viper.GetString("output_dir"), arg)
}
