// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ChartFormat selects the chart segmentation strategy for a document.
type ChartFormat string

const (
	// ChartFormatA recognises headers in a fixed three-fragment window.
	ChartFormatA ChartFormat = "A"
	// ChartFormatB recognises headers by substring anywhere in a fragment.
	ChartFormatB ChartFormat = "B"
	// ChartFormatC recognises headers and class blocks by font identifier.
	ChartFormatC ChartFormat = "C"
)

// Valid reports whether f names a known chart format.
func (f ChartFormat) Valid() bool {
	switch f {
	case ChartFormatA, ChartFormatB, ChartFormatC:
		return true
	}
	return false
}

// Classification is a Class of Recommendation (COR) marker such as "IIa" or "2a".
type Classification string

// EvidenceLevel is a Level of Evidence (LOE) marker such as "B-NR".
type EvidenceLevel string

// Chart is one recommendation block extracted from a guideline document.
type Chart struct {
	// Title is the chart heading (e.g. "Recommendations for Statin Therapy").
	Title string `json:"title" yaml:"title"`

	// Subtitle is any descriptive text absorbed after the heading.
	Subtitle string `json:"subtitle" yaml:"subtitle"`

	// Position is the index of the header fragment in the document stream.
	Position int `json:"position" yaml:"position"`

	// Rows lists the recommendations in document order.
	Rows []RecommendationRow `json:"rows" yaml:"rows"`
}

// RecommendationRow is a single COR/LOE/text triple.
type RecommendationRow struct {
	Classification Classification `json:"classification" yaml:"classification"`
	EvidenceLevel  EvidenceLevel  `json:"evidence_level" yaml:"evidence_level"`

	// Text is the recommendation text including its trailing citation group.
	Text string `json:"text" yaml:"text"`

	// Citations lists the expanded citation keys found in Text.
	Citations []string `json:"citations" yaml:"citations"`

	// Position is the index of the fragment that opened the row.
	Position int `json:"position" yaml:"position"`

	// Truncated is set when text accumulation hit the lookahead bound
	// before a termination condition fired.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}
