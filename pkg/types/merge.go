// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"sort"
)

// FieldValue holds one or more distinct values for a merged field. It
// marshals as a scalar when all source records agree and as a list otherwise.
type FieldValue struct {
	Values []string
}

// Scalar returns the single value and true when exactly one value is held.
func (v FieldValue) Scalar() (string, bool) {
	if len(v.Values) == 1 {
		return v.Values[0], true
	}
	return "", false
}

// Add inserts s if it is not already present. Values stay sorted.
func (v *FieldValue) Add(s string) {
	i := sort.SearchStrings(v.Values, s)
	if i < len(v.Values) && v.Values[i] == s {
		return
	}
	v.Values = append(v.Values, "")
	copy(v.Values[i+1:], v.Values[i:])
	v.Values[i] = s
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if s, ok := v.Scalar(); ok {
		return json.Marshal(s)
	}
	if v.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Values)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Values = []string{s}
		return nil
	}
	return json.Unmarshal(data, &v.Values)
}

// MergedRecord is the evidence attached to one literature identifier.
type MergedRecord struct {
	// Source is "evidence" when built from data-supplement rows and
	// "abstract" when synthesised from an external abstract fetch.
	Source string `json:"source"`

	// Rows is the number of evidence rows unioned into the record.
	Rows int `json:"rows,omitempty"`

	Fields map[string]FieldValue `json:"fields,omitempty"`

	Title    string `json:"title,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// Abstract is the minimal literature record returned by an abstract fetch.
type Abstract struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
}

// MergedRow is a recommendation row joined to its evidence.
type MergedRow struct {
	RecommendationRow

	// Evidence maps literature identifiers to merged records.
	Evidence map[string]MergedRecord `json:"evidence"`

	// Unresolved lists citation keys absent from the reference table.
	Unresolved []string `json:"unresolved,omitempty"`
}

// MergedChart is a chart whose rows carry joined evidence.
type MergedChart struct {
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Rows     []MergedRow `json:"rows"`
}
