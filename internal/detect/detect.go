// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detect guesses per-document parse settings from a fragment
// stream and writes them as a manifest the batch pipeline can read.
package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/guideline-engine/internal/fragment"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Fallback margins used when fewer than two margin bins are populated.
const (
	DefaultLeftDown = 63
	DefaultLeftUp   = 80
)

// formatBThreshold is the header count above which a document is taken to
// use substring headers.
const formatBThreshold = 5

var (
	sectionedCitation = regexp.MustCompile(`S\d+[\d,\s.-]+`)
	numericCitation   = regexp.MustCompile(`\(\d+\)`)
)

// CitationVersion returns the citation grammar of the first fragment that
// looks like a citation, defaulting to the sectioned grammar.
func CitationVersion(frags []types.Fragment) types.CitationVersion {
	for _, f := range frags {
		if sectionedCitation.MatchString(f.Text) {
			return types.CitationSectioned
		}
		if numericCitation.MatchString(f.Text) {
			return types.CitationNumeric
		}
	}
	return types.CitationSectioned
}

// ChartFormat returns format B when more than a handful of fragments
// contain a "recommendations for" header, and format A otherwise.
func ChartFormat(frags []types.Fragment) types.ChartFormat {
	var n int
	for _, f := range frags {
		if strings.Contains(strings.ToLower(f.Text), "recommendations for") {
			n++
		}
	}
	if n > formatBThreshold {
		return types.ChartFormatB
	}
	return types.ChartFormatA
}

// LeftMargins bins the distinct positive left offsets into 10-unit buckets
// and returns the lower edges of the two most populous buckets. Ties go to
// the smaller offset.
func LeftMargins(frags []types.Fragment) (leftDown, leftUp int) {
	seen := make(map[int]bool)
	bins := make(map[int]int)
	for _, f := range frags {
		if f.Left <= 0 || seen[f.Left] {
			continue
		}
		seen[f.Left] = true
		bins[f.Left/10*10]++
	}
	if len(bins) < 2 {
		return DefaultLeftDown, DefaultLeftUp
	}

	edges := make([]int, 0, len(bins))
	for e := range bins {
		edges = append(edges, e)
	}
	sort.Ints(edges)
	sort.SliceStable(edges, func(a, b int) bool { return bins[edges[a]] > bins[edges[b]] })
	return edges[0], edges[1]
}

// Config builds a document configuration for a guideline stream.
func Config(dir, guidelineXML string, frags []types.Fragment) types.DocumentConfig {
	th := types.DefaultThresholds()
	th.LeftDown, th.LeftUp = LeftMargins(frags)
	return types.DocumentConfig{
		Name:              filepath.Base(dir),
		Directory:         dir,
		GuidelineXML:      guidelineXML,
		ChartFormat:       ChartFormat(frags),
		CitationVersion:   CitationVersion(frags),
		SupplementVersion: types.SupplementV1,
		Thresholds:        th,
	}
}

// Directory analyses each subdirectory of root holding converter output.
// The first .xml file in a subdirectory (by name) is taken as the guideline;
// a second file whose name contains "supplement" becomes the supplement.
// Subdirectories without XML are skipped; unreadable XML is an error.
func Directory(root string) (types.Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("reading %s: %w", root, err)
	}

	var m types.Manifest
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := filepath.Glob(filepath.Join(dir, "*.xml"))
		if err != nil {
			return types.Manifest{}, fmt.Errorf("listing %s: %w", dir, err)
		}
		sort.Strings(files)

		var guideline, supplement string
		for _, f := range files {
			name := filepath.Base(f)
			switch {
			case strings.Contains(strings.ToLower(name), "supplement"):
				if supplement == "" {
					supplement = name
				}
			case guideline == "":
				guideline = name
			}
		}
		if guideline == "" {
			continue
		}

		doc, err := fragment.Load(filepath.Join(dir, guideline))
		if err != nil {
			return types.Manifest{}, err
		}
		cfg := Config(dir, guideline, doc.Fragments)
		cfg.SupplementXML = supplement
		m.Documents = append(m.Documents, cfg)
	}
	return m, nil
}
