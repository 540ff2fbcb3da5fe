// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the guideline-engine pipeline.
// Implements: fragment stream (Fragment, Stream contract);
//
//	chart segmentation (Chart, RecommendationRow);
//	citation resolution (ReferenceEntry, ResolvedCitation);
//	evidence tables (EvidenceTable, EvidenceRow, EvidenceRecord);
//	record merging (MergedRow, MergedRecord).
//
// See docs/ARCHITECTURE.md § Data Model.
package types

// Fragment is one positioned piece of text emitted by the upstream
// PDF-to-markup conversion. Fragments are produced once per document in
// reading order and never mutated.
type Fragment struct {
	// Text is the trimmed, normalised text of the fragment including all
	// nested spans.
	Text string `json:"text" yaml:"text"`

	// Left is the horizontal offset of the fragment on its page.
	Left int `json:"left" yaml:"left"`

	// Width is the horizontal extent of the fragment.
	Width int `json:"width" yaml:"width"`

	// Top is the vertical offset of the fragment on its page.
	Top int `json:"top,omitempty" yaml:"top,omitempty"`

	// Page is the 1-based page number the fragment appears on.
	Page int `json:"page,omitempty" yaml:"page,omitempty"`

	// FontID is the font identifier declared by the converter (a fontspec id).
	FontID string `json:"font_id" yaml:"font_id"`

	// Bold reports whether the fragment carries at least one bold span.
	Bold bool `json:"bold" yaml:"bold"`

	// Italic reports whether the fragment carries at least one italic span.
	Italic bool `json:"italic,omitempty" yaml:"italic,omitempty"`

	// BoldSpans holds the text of each bold sub-span in order.
	BoldSpans []string `json:"bold_spans,omitempty" yaml:"bold_spans,omitempty"`
}

// BoldText returns the concatenation of the fragment's bold spans.
func (f Fragment) BoldText() string {
	var n int
	for _, s := range f.BoldSpans {
		n += len(s)
	}
	b := make([]byte, 0, n)
	for _, s := range f.BoldSpans {
		b = append(b, s...)
	}
	return string(b)
}

// FontSpec is a font declaration from the converter output.
type FontSpec struct {
	ID     string `json:"id" yaml:"id"`
	Size   int    `json:"size" yaml:"size"`
	Family string `json:"family" yaml:"family"`
	Color  string `json:"color,omitempty" yaml:"color,omitempty"`
}
