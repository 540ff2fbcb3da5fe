// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the per-document parse (charts, references,
// evidence, merge) and writes its artifacts, one document or a manifest
// batch at a time.
// Implements: per-document orchestration and batch fan-out;
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/guideline-engine/internal/chart"
	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/internal/evidence"
	"github.com/pdiddy/guideline-engine/internal/fragment"
	"github.com/pdiddy/guideline-engine/internal/merge"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Artifact file names written per document.
const (
	ChartsFile     = "charts.json"
	ReferencesFile = "references.json"
	EvidenceFile   = "evidence.json"
	MergedFile     = "merged.json"
)

// Options controls document processing.
type Options struct {
	// OutputDir receives one artifact subdirectory per document. When empty
	// artifacts are written next to the document inputs.
	OutputDir string

	// Merger joins rows to evidence. Nil skips the merge and merged.json.
	Merger *merge.Merger

	// Workers bounds concurrent documents in a batch (default 4).
	Workers int

	// Force re-parses documents whose artifacts already exist.
	Force bool

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Outcome is a parsed document together with its merged charts.
type Outcome struct {
	Result *types.DocumentResult
	Merged []types.MergedChart
}

// Parse extracts charts, references and evidence from one document. Only
// I/O and configuration failures are returned; recoverable parse failures
// are collected in the result's diagnostics.
func Parse(ctx context.Context, cfg types.DocumentConfig, opts Options) (*Outcome, error) {
	opts = opts.withDefaults()
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	log := opts.Logger.With("doc", cfg.Name)

	doc, err := fragment.Load(filepath.Join(cfg.Directory, cfg.GuidelineXML))
	if err != nil {
		return nil, err
	}

	charts, state, err := chart.Segment(doc.Fragments, cfg.ChartFormat, chart.Options{
		Thresholds:  cfg.Thresholds,
		Fonts:       cfg.Fonts,
		ClassFilter: chart.NewClassFilter(cfg.ClassFilter),
		Citations:   cfg.CitationVersion,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("segmenting %s: %w", cfg.Name, err)
	}

	res := &types.DocumentResult{
		Name:       cfg.Name,
		Charts:     charts,
		References: citation.ExtractReferences(doc.Fragments, cfg.CitationVersion),
	}
	res.Diagnostics.Merge(state.Diagnostics)

	if cfg.SupplementXML != "" {
		sup, err := fragment.Load(filepath.Join(cfg.Directory, cfg.SupplementXML))
		if err != nil {
			return nil, err
		}
		ev := evidence.Parse(sup.Fragments, evidence.Options{
			Version:    cfg.SupplementVersion,
			Thresholds: cfg.Thresholds,
			Logger:     log,
		})
		res.Tables, res.Records = ev.Tables, ev.Records
		res.Diagnostics.Merge(ev.Diagnostics)
	}

	out := &Outcome{Result: res}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Merger != nil {
		merged, diag, err := opts.Merger.Merge(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", cfg.Name, err)
		}
		out.Merged = merged
		res.Diagnostics.Merge(diag)
	} else {
		resolver := citation.NewResolver(res.References, log)
		for _, c := range res.Charts {
			for _, row := range c.Rows {
				resolver.Resolve(row, &res.Diagnostics)
			}
		}
	}

	log.Info("parsed document",
		"charts", len(res.Charts),
		"rows", res.RowCount(),
		"references", res.References.Len(),
		"records", len(res.Records),
		"diagnostics", res.Diagnostics.Total(),
	)
	return out, nil
}

// ArtifactDir returns the directory a document's artifacts are written to.
func ArtifactDir(cfg types.DocumentConfig, opts Options) string {
	if opts.OutputDir == "" {
		return cfg.Directory
	}
	return filepath.Join(opts.OutputDir, Normalize(cfg).Name)
}

// ProcessDocument parses one document and writes its artifacts.
func ProcessDocument(ctx context.Context, cfg types.DocumentConfig, opts Options) (*Outcome, error) {
	out, err := Parse(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := WriteArtifacts(ArtifactDir(cfg, opts), out); err != nil {
		return nil, err
	}
	return out, nil
}

// evidenceArtifact is the on-disk shape of evidence.json.
type evidenceArtifact struct {
	Records     []types.EvidenceRecord `json:"records"`
	Tables      []types.EvidenceTable  `json:"tables,omitempty"`
	Diagnostics types.Diagnostics      `json:"diagnostics"`
}

type artifact struct {
	name string
	v    any
}

// WriteArtifacts writes charts.json, references.json (key to citation
// text), evidence.json and, when merged charts exist, merged.json into dir.
func WriteArtifacts(dir string, out *Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	res := out.Result
	charts, records := res.Charts, res.Records
	if charts == nil {
		charts = []types.Chart{}
	}
	if records == nil {
		records = []types.EvidenceRecord{}
	}
	files := []artifact{
		{ChartsFile, charts},
		{ReferencesFile, res.References.Map()},
		{EvidenceFile, evidenceArtifact{Records: records, Tables: res.Tables, Diagnostics: res.Diagnostics}},
	}
	if out.Merged != nil {
		files = append(files, artifact{MergedFile, out.Merged})
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadCharts loads a charts.json artifact.
func ReadCharts(path string) ([]types.Chart, error) {
	var charts []types.Chart
	if err := readJSON(path, &charts); err != nil {
		return nil, err
	}
	return charts, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ReadArtifacts rebuilds a document result from the artifacts in dir. The
// document is named after dir. Reference entries lose their bibliography
// order and are sorted by key. A missing evidence.json yields no records.
func ReadArtifacts(dir string) (*types.DocumentResult, error) {
	charts, err := ReadCharts(filepath.Join(dir, ChartsFile))
	if err != nil {
		return nil, err
	}
	var refs map[string]string
	if err := readJSON(filepath.Join(dir, ReferencesFile), &refs); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]types.ReferenceEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, types.ReferenceEntry{Key: k, CitationText: refs[k]})
	}

	res := &types.DocumentResult{
		Name:       filepath.Base(dir),
		Charts:     charts,
		References: types.NewReferenceTable(entries),
	}
	var ev evidenceArtifact
	if err := readJSON(filepath.Join(dir, EvidenceFile), &ev); err == nil {
		res.Records, res.Tables, res.Diagnostics = ev.Records, ev.Tables, ev.Diagnostics
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return res, nil
}

// ReadMerged loads a merged.json artifact.
func ReadMerged(path string) ([]types.MergedChart, error) {
	var merged []types.MergedChart
	if err := readJSON(path, &merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// ArtifactDirs lists the subdirectories of outputDir that hold a charts
// artifact, sorted by name.
func ArtifactDirs(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", outputDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(outputDir, e.Name())
		if exists(filepath.Join(dir, ChartsFile)) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
