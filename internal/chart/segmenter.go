// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chart segments a guideline's fragment stream into recommendation
// charts and extracts their classification, evidence level, and text rows.
// Implements: ChartSegmenter (formats A, B, C), SegmentationState,
//
//	RowTerminationPolicy; docs/ARCHITECTURE § Chart Segmentation.
package chart

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Options configures a segmenter for one document.
type Options struct {
	Thresholds types.Thresholds
	Fonts      types.FontSelectors

	// ClassFilter restricts the classifications emitted.
	ClassFilter ClassFilter

	// Citations selects the grammar used to expand each row's citations.
	Citations types.CitationVersion

	// Logger receives one record per dropped row. Nil discards.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	o.Thresholds = o.Thresholds.WithDefaults()
	if !o.Citations.Valid() {
		o.Citations = types.CitationSectioned
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// State is the segmentation bookkeeping threaded through one pass and
// returned with the charts.
type State struct {
	// ChartIndex is the number of chart headers accepted so far.
	ChartIndex int `json:"chart_index"`

	// Position is the index of the next fragment to examine.
	Position int `json:"position"`

	// Dropped counts rows discarded as malformed.
	Dropped int `json:"dropped"`

	// Filtered counts rows skipped by the class filter.
	Filtered int `json:"filtered"`

	// Truncated counts rows closed by the lookahead bound.
	Truncated int `json:"truncated"`

	// RejectedHeaders counts header candidates that failed confirmation.
	RejectedHeaders int `json:"rejected_headers"`

	Diagnostics types.Diagnostics `json:"diagnostics"`
}

// Segmenter partitions a fragment stream into charts.
type Segmenter interface {
	Segment(frags []types.Fragment) ([]types.Chart, State)
}

// For returns the segmenter for format.
func For(format types.ChartFormat, opts Options) (Segmenter, error) {
	opts = opts.withDefaults()
	switch format {
	case types.ChartFormatA:
		return &formatA{opts: opts}, nil
	case types.ChartFormatB:
		return &formatB{opts: opts}, nil
	case types.ChartFormatC:
		if len(opts.Fonts.Title) == 0 || opts.Fonts.Class == "" {
			return nil, fmt.Errorf("chart format C needs title and class font selectors")
		}
		return &formatC{opts: opts}, nil
	}
	return nil, fmt.Errorf("unknown chart format %q", format)
}

// Segment runs the segmenter for format over frags.
func Segment(frags []types.Fragment, format types.ChartFormat, opts Options) ([]types.Chart, State, error) {
	s, err := For(format, opts)
	if err != nil {
		return nil, State{}, err
	}
	charts, st := s.Segment(frags)
	return charts, st, nil
}

var titleHeader = regexp.MustCompile(`(?i)recommendations? for`)

// isHeader reports whether text announces a chart ("Recommendations for ...").
func isHeader(text string) bool {
	return titleHeader.MatchString(text)
}

// run holds the charts of one pass and the open chart.
type run struct {
	opts   Options
	frags  []types.Fragment
	st     State
	charts []types.Chart

	// titledHeaders marks formats whose header is preceded by a title
	// fragment, which then belongs to the next chart.
	titledHeaders bool
}

func newRun(opts Options, frags []types.Fragment) *run {
	return &run{opts: opts, frags: frags}
}

func (r *run) openChart(title, subtitle string, position int) {
	r.st.ChartIndex++
	r.charts = append(r.charts, types.Chart{
		Title:    strings.TrimSpace(title),
		Subtitle: strings.TrimSpace(subtitle),
		Position: position,
	})
}

func (r *run) current() *types.Chart {
	if len(r.charts) == 0 {
		return nil
	}
	return &r.charts[len(r.charts)-1]
}

// finish drops charts that collected no rows.
func (r *run) finish() ([]types.Chart, State) {
	kept := r.charts[:0]
	for _, c := range r.charts {
		if len(c.Rows) > 0 {
			kept = append(kept, c)
		}
	}
	r.st.Position = len(r.frags)
	return kept, r.st
}

// rowStart reports whether frags[i] and frags[i+1] are a classification
// and evidence level pair that passes the class filter.
func (r *run) rowStart(i int) (types.Classification, types.EvidenceLevel, bool) {
	if i+1 >= len(r.frags) {
		return "", "", false
	}
	cor, ok := ParseClassification(r.frags[i].Text)
	if !ok {
		return "", "", false
	}
	loe, ok := ParseEvidenceLevel(r.frags[i+1].Text)
	if !ok {
		return "", "", false
	}
	return cor, loe, true
}

// boundary reports whether frags[i] begins another row or chart, which ends
// any text accumulation in progress. With titled headers a fragment just
// before a header is the next chart's title and is a boundary too.
func (r *run) boundary(i int) bool {
	if _, _, ok := r.rowStart(i); ok {
		return true
	}
	if isHeader(r.frags[i].Text) {
		return true
	}
	return r.titledHeaders && i+1 < len(r.frags) && headerA.MatchString(r.frags[i+1].Text)
}

// accumulate collects recommendation text from frags[start:] under policy,
// bounded by MaxLookahead fragments. It returns the text, the index of the
// first fragment not consumed, and whether the bound closed the row.
func (r *run) accumulate(start int, policy RowTerminationPolicy) (string, int, bool) {
	var text string
	limit := min(start+r.opts.Thresholds.MaxLookahead, len(r.frags))
	for j := start; j < limit; j++ {
		f := r.frags[j]
		if j > start && r.boundary(j) {
			return text, j, false
		}
		candidate := joinText(text, f.Text)
		switch policy.Decide(f, candidate) {
		case IncludeAndStop:
			return candidate, j + 1, false
		case ExcludeAndStop:
			return text, j, false
		}
		text = candidate
	}
	return text, limit, limit < len(r.frags)
}

// emit validates a row and appends it to the open chart. Invalid rows are
// recorded as malformed and dropped.
func (r *run) emit(row types.RecommendationRow) {
	row.Text = dropEnumerator(strings.TrimSpace(row.Text))

	var reason string
	switch {
	case row.Classification == "":
		reason = "missing classification"
	case row.EvidenceLevel == "":
		reason = "missing evidence level"
	case row.Text == "":
		reason = "empty recommendation text"
	case r.current() == nil:
		reason = "row before any chart header"
	}
	if reason != "" {
		r.drop(&types.MalformedRowError{Position: row.Position, Text: row.Text, Reason: reason})
		return
	}
	if !r.opts.ClassFilter.Allows(row.Classification) {
		r.st.Filtered++
		return
	}

	row.Citations = citation.ParseTokens(row.Text, r.opts.Citations)
	if row.Citations == nil {
		row.Citations = []string{}
	}
	if row.Truncated {
		r.st.Truncated++
	}
	c := r.current()
	c.Rows = append(c.Rows, row)
}

func (r *run) drop(err *types.MalformedRowError) {
	r.st.Dropped++
	r.st.Diagnostics.Record(err)
	r.opts.Logger.Warn("dropped row",
		"position", err.Position,
		"reason", err.Reason,
		"text", err.Text,
	)
}

// guard runs build inside a recoverable boundary. A panic while building
// the row at position drops the row and resumes at position+1.
func (r *run) guard(position int, build func() int) (next int) {
	defer func() {
		if p := recover(); p != nil {
			r.drop(&types.MalformedRowError{
				Position: position,
				Text:     r.frags[position].Text,
				Reason:   fmt.Sprintf("row construction failed: %v", p),
			})
			next = position + 1
		}
	}()
	return build()
}
