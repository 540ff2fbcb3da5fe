// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CitationVersion selects the citation token grammar and the matching
// reference list format.
type CitationVersion int

const (
	// CitationSectioned uses S-prefixed keys (S6.3.3-1, ranges joined by a dash).
	CitationSectioned CitationVersion = 1
	// CitationNumeric uses bare integer keys (12, 12-15, 12,14-16).
	CitationNumeric CitationVersion = 2
)

// Valid reports whether v names a known citation grammar.
func (v CitationVersion) Valid() bool {
	return v == CitationSectioned || v == CitationNumeric
}

// ReferenceEntry is one bibliography item keyed by its in-text marker.
type ReferenceEntry struct {
	// Key is the literal marker used in-text (e.g. "S6.3.3-1" or "12").
	Key string `json:"key" yaml:"key"`

	// CitationText is the bibliography text for the entry.
	CitationText string `json:"citation_text" yaml:"citation_text"`

	// PMIDs lists literature-database identifiers attached by an external
	// lookup, most relevant first. Empty until the lookup runs.
	PMIDs []string `json:"pmids,omitempty" yaml:"pmids,omitempty"`
}

// ReferenceTable maps citation keys to reference entries. It is built once
// per document and not modified afterwards.
type ReferenceTable struct {
	// Entries holds the entries in bibliography order.
	Entries []ReferenceEntry `json:"entries" yaml:"entries"`

	index map[string]int
}

// NewReferenceTable builds a table from entries. Later duplicates of a key
// replace the text of the first occurrence.
func NewReferenceTable(entries []ReferenceEntry) *ReferenceTable {
	t := &ReferenceTable{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if i, ok := t.index[e.Key]; ok {
			t.Entries[i] = e
			continue
		}
		t.index[e.Key] = len(t.Entries)
		t.Entries = append(t.Entries, e)
	}
	return t
}

// Lookup returns the entry for key.
func (t *ReferenceTable) Lookup(key string) (ReferenceEntry, bool) {
	if t == nil {
		return ReferenceEntry{}, false
	}
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[key]
	if !ok {
		return ReferenceEntry{}, false
	}
	return t.Entries[i], true
}

// Len returns the number of entries.
func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Map returns the key → citation text view written to the reference-map artifact.
func (t *ReferenceTable) Map() map[string]string {
	m := make(map[string]string, t.Len())
	if t == nil {
		return m
	}
	for _, e := range t.Entries {
		m[e.Key] = e.CitationText
	}
	return m
}

func (t *ReferenceTable) reindex() {
	t.index = make(map[string]int, len(t.Entries))
	for i, e := range t.Entries {
		if _, ok := t.index[e.Key]; !ok {
			t.index[e.Key] = i
		}
	}
}

// ResolvedCitation pairs an expanded citation key with its reference entry.
type ResolvedCitation struct {
	Key   string         `json:"key" yaml:"key"`
	Entry ReferenceEntry `json:"entry" yaml:"entry"`
}
