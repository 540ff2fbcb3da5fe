package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "guideline-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PubMedConfig holds settings for the NCBI E-utilities collaborator.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent with every request as NCBI asks of registered tools.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxIDs is the esearch retmax per citation (default 3).
	MaxIDs int `json:"max_ids" yaml:"max_ids"`

	// RequestDelay is the pause between consecutive requests (default 350ms).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`
}

// Thresholds holds the position and length tunables used by the
// layout heuristics. All values are in converter units.
type Thresholds struct {
	// LeftDown and LeftUp bound the left margin of chart headers in some
	// documents. LeftUp is also the minimum left of an evidence-table
	// continuation fragment.
	LeftDown int `json:"left_down" yaml:"left_down"`
	LeftUp   int `json:"left_up" yaml:"left_up"`

	// RowStartMax is the exclusive upper bound on the left of a row starter (default 100).
	RowStartMax int `json:"row_start_max" yaml:"row_start_max"`

	// RowFieldGap is the header clustering tolerance (default 60).
	RowFieldGap int `json:"row_field_gap" yaml:"row_field_gap"`

	// ContinuationWindow is the ± window under which consecutive row
	// starters continue the same row (default 20).
	ContinuationWindow int `json:"continuation_window" yaml:"continuation_window"`

	// CellTolerance is the cell boundary clustering tolerance that absorbs
	// bullet indentation (default 45).
	CellTolerance int `json:"cell_tolerance" yaml:"cell_tolerance"`

	// MinStarterLen and MaxStarterLen are exclusive text length bounds on
	// row starters (default 3 and 40).
	MinStarterLen int `json:"min_starter_len" yaml:"min_starter_len"`
	MaxStarterLen int `json:"max_starter_len" yaml:"max_starter_len"`

	// MaxContinuationLen is the exclusive length bound on continuation text (default 100).
	MaxContinuationLen int `json:"max_continuation_len" yaml:"max_continuation_len"`

	// MaxLookahead bounds recommendation text accumulation (default 10).
	MaxLookahead int `json:"max_lookahead" yaml:"max_lookahead"`

	// SubtitleLookahead bounds subtitle and title absorption (default 5).
	SubtitleLookahead int `json:"subtitle_lookahead" yaml:"subtitle_lookahead"`
}

// DefaultThresholds returns the tunables used when a document leaves them unset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LeftDown:           63,
		LeftUp:             110,
		RowStartMax:        100,
		RowFieldGap:        60,
		ContinuationWindow: 20,
		CellTolerance:      45,
		MinStarterLen:      3,
		MaxStarterLen:      40,
		MaxContinuationLen: 100,
		MaxLookahead:       10,
		SubtitleLookahead:  5,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	pick := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}
	return Thresholds{
		LeftDown:           pick(t.LeftDown, d.LeftDown),
		LeftUp:             pick(t.LeftUp, d.LeftUp),
		RowStartMax:        pick(t.RowStartMax, d.RowStartMax),
		RowFieldGap:        pick(t.RowFieldGap, d.RowFieldGap),
		ContinuationWindow: pick(t.ContinuationWindow, d.ContinuationWindow),
		CellTolerance:      pick(t.CellTolerance, d.CellTolerance),
		MinStarterLen:      pick(t.MinStarterLen, d.MinStarterLen),
		MaxStarterLen:      pick(t.MaxStarterLen, d.MaxStarterLen),
		MaxContinuationLen: pick(t.MaxContinuationLen, d.MaxContinuationLen),
		MaxLookahead:       pick(t.MaxLookahead, d.MaxLookahead),
		SubtitleLookahead:  pick(t.SubtitleLookahead, d.SubtitleLookahead),
	}
}

// FontSelectors holds the font identifiers used by chart format C.
type FontSelectors struct {
	// Title lists the font IDs a section title may use.
	Title []string `json:"title" yaml:"title"`

	Subtitle string `json:"subtitle" yaml:"subtitle"`
	Class    string `json:"class" yaml:"class"`
}

// DocumentConfig describes one guideline document and its data supplement.
type DocumentConfig struct {
	// Name identifies the document in logs and artifacts (defaults to the
	// directory base name).
	Name string `json:"name" yaml:"name"`

	// Directory holds the document inputs and receives its artifacts.
	Directory string `json:"directory" yaml:"directory"`

	// GuidelineXML is the converter output for the guideline, relative to Directory.
	GuidelineXML string `json:"guideline_xml" yaml:"guideline_xml"`

	// SupplementXML is the converter output for the data supplement (optional).
	SupplementXML string `json:"supplement_xml,omitempty" yaml:"supplement_xml,omitempty"`

	ChartFormat       ChartFormat       `json:"chart_format" yaml:"chart_format"`
	CitationVersion   CitationVersion   `json:"citation_version" yaml:"citation_version"`
	SupplementVersion SupplementVersion `json:"supplement_version" yaml:"supplement_version"`

	Thresholds Thresholds    `json:"thresholds" yaml:"thresholds"`
	Fonts      FontSelectors `json:"fonts" yaml:"fonts"`

	// ClassFilter restricts accepted classification markers. Empty accepts all.
	ClassFilter []string `json:"class_filter,omitempty" yaml:"class_filter,omitempty"`
}

// Manifest lists the documents processed by a batch run.
type Manifest struct {
	Documents []DocumentConfig `json:"documents" yaml:"documents"`
}

// StoreConfig holds settings for the results store.
type StoreConfig struct {
	// StoreDir is the directory containing guidelines.db and exports.
	StoreDir string `json:"store_dir" yaml:"store_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
