// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DocumentResult holds everything extracted from one guideline document and
// its data supplement.
type DocumentResult struct {
	// Name identifies the document.
	Name string `json:"name" yaml:"name"`

	Charts     []Chart         `json:"charts" yaml:"charts"`
	References *ReferenceTable `json:"references" yaml:"references"`

	// Tables holds the reconstructed evidence tables before schema mapping.
	Tables []EvidenceTable `json:"tables,omitempty" yaml:"tables,omitempty"`

	// Records holds the named-field evidence records.
	Records []EvidenceRecord `json:"records" yaml:"records"`

	Diagnostics Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// RowCount returns the number of recommendation rows across all charts.
func (r *DocumentResult) RowCount() int {
	var n int
	for _, c := range r.Charts {
		n += len(c.Rows)
	}
	return n
}
