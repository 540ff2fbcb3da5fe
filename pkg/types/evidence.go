// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SupplementVersion selects the field-name schemas used for a data
// supplement's evidence tables.
type SupplementVersion int

const (
	SupplementV1 SupplementVersion = 1
	SupplementV2 SupplementVersion = 2
	// SupplementV3 tables carry parenthesised reference numbers inside rows.
	SupplementV3 SupplementVersion = 3
	// SupplementV4 tables use the live-detected column names directly.
	SupplementV4 SupplementVersion = 4
)

// Valid reports whether v names a known supplement version.
func (v SupplementVersion) Valid() bool {
	return v >= SupplementV1 && v <= SupplementV4
}

// FallbackColumnName names the single column used when no bold header
// cluster is found.
const FallbackColumnName = "Not available"

// ColumnSpec describes one detected evidence-table column.
type ColumnSpec struct {
	Name  string `json:"name" yaml:"name"`
	Left  int    `json:"left" yaml:"left"`
	Width int    `json:"width" yaml:"width"`
}

// EvidenceTable is one table reconstructed from a data supplement.
type EvidenceTable struct {
	// Title is the text of the "Data Supplement" marker fragment.
	Title string `json:"title" yaml:"title"`

	Columns []ColumnSpec  `json:"columns" yaml:"columns"`
	Rows    []EvidenceRow `json:"rows" yaml:"rows"`
}

// ColumnNames returns the column names in order.
func (t EvidenceTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// EvidenceRow is an ordered list of merged cell strings, positionally
// aligned to the table's columns when possible.
type EvidenceRow struct {
	Cells []string `json:"cells" yaml:"cells"`

	// Titles are the bold run-in headings seen inside the row ("Aim", "Results").
	Titles []string `json:"titles,omitempty" yaml:"titles,omitempty"`

	// References holds reference numbers collected from version-3 rows.
	References []string `json:"references,omitempty" yaml:"references,omitempty"`

	// Position is the index of the fragment that opened the row.
	Position int `json:"position" yaml:"position"`
}

// MappingConfidence grades how a row's cells were mapped onto field names.
type MappingConfidence string

const (
	// ConfidenceLiveHeader means the detected column names were used directly.
	ConfidenceLiveHeader MappingConfidence = "live-header"
	// ConfidenceHeaderAgrees means the fixed-arity schema was chosen by cell
	// count and the detected header has the same number of columns.
	ConfidenceHeaderAgrees MappingConfidence = "header-agrees"
	// ConfidenceCountOnly means the schema was chosen by cell count alone.
	ConfidenceCountOnly MappingConfidence = "count-only"
)

// EvidenceRecord is an evidence row remapped onto named fields.
type EvidenceRecord struct {
	// PMID is the literature identifier used to join records to citations.
	PMID string `json:"pmid" yaml:"pmid"`

	Acronym string `json:"acronym,omitempty" yaml:"acronym,omitempty"`
	Author  string `json:"author,omitempty" yaml:"author,omitempty"`
	Year    string `json:"year,omitempty" yaml:"year,omitempty"`

	// Fields maps schema field names (and run-in titles) to cell text.
	Fields map[string]string `json:"fields" yaml:"fields"`

	// References holds resolved reference texts for version-3 rows.
	References []string `json:"references,omitempty" yaml:"references,omitempty"`

	// Table is the title of the source table.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`

	Confidence MappingConfidence `json:"confidence" yaml:"confidence"`
}
