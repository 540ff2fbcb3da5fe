// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

const spacedHeading = "R E F E R E N C E S"

var (
	sectionedKeyOnly = regexp.MustCompile(`^S\.?\d+[\d,\s.-]+$`)
	sectionedKeyRest = regexp.MustCompile(`^(S\d+[\d,\s.-]+)(.*)`)
	numberedKey      = regexp.MustCompile(`^(\d{1,4})\.(?:\s|$)(.*)`)
)

// ExtractReferences builds the reference table from the bibliography that
// follows the "References" heading of frags. Version 1 documents use
// section keys (list format a); version 2 documents use numbered entries
// (list format b). A document without a heading yields an empty table.
func ExtractReferences(frags []types.Fragment, version types.CitationVersion) *types.ReferenceTable {
	if version == types.CitationNumeric {
		return ExtractNumbered(frags)
	}
	return ExtractSectioned(frags)
}

// ExtractSectioned reads list format a: a fragment holding only an S-key
// opens an entry whose text arrives in following fragments; a fragment
// starting with an S-key opens an entry with the remainder as its text.
// Fragments carrying bold or italic spans are headings and are skipped.
func ExtractSectioned(frags []types.Fragment) *types.ReferenceTable {
	start := boundary(frags, func(f types.Fragment) bool {
		return strings.ToLower(strings.TrimSpace(f.BoldText())) == "references" ||
			f.Text == spacedHeading
	})

	var (
		entries []types.ReferenceEntry
		text    []*strings.Builder
		open    = -1
	)
	begin := func(key, rest string) {
		entries = append(entries, types.ReferenceEntry{Key: strings.Trim(key, ". ")})
		text = append(text, &strings.Builder{})
		open = len(entries) - 1
		text[open].WriteString(rest)
	}

	for _, f := range frags[start:] {
		if f.Bold || f.Italic {
			continue
		}
		switch {
		case sectionedKeyOnly.MatchString(f.Text):
			begin(f.Text, "")
		case sectionedKeyRest.MatchString(f.Text):
			m := sectionedKeyRest.FindStringSubmatch(f.Text)
			begin(m[1], m[2])
		case open >= 0:
			text[open].WriteByte(' ')
			text[open].WriteString(f.Text)
		}
	}

	for i := range entries {
		entries[i].CitationText = strings.TrimSpace(text[i].String())
	}
	return types.NewReferenceTable(entries)
}

// ExtractNumbered reads list format b: "<n>. <text>" opens entry n and
// following fragments extend it until the next numbered key. Bold fragments
// and "Downloaded from" page furniture are skipped. The last open entry is
// kept.
func ExtractNumbered(frags []types.Fragment) *types.ReferenceTable {
	start := boundary(frags, func(f types.Fragment) bool {
		return strings.ToLower(f.Text) == "references" ||
			strings.ToLower(strings.TrimSpace(f.BoldText())) == "references" ||
			f.Text == spacedHeading
	})

	var (
		entries []types.ReferenceEntry
		key     string
		buf     strings.Builder
	)
	flush := func() {
		if key != "" {
			entries = append(entries, types.ReferenceEntry{
				Key:          key,
				CitationText: strings.TrimSpace(buf.String()),
			})
		}
		buf.Reset()
	}

	for _, f := range frags[start:] {
		if f.Bold || strings.HasPrefix(f.Text, "Downloaded from") {
			continue
		}
		if m := numberedKey.FindStringSubmatch(f.Text); m != nil {
			flush()
			key = m[1]
			buf.WriteString(strings.TrimSpace(m[2]))
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(f.Text)
	}
	flush()
	return types.NewReferenceTable(entries)
}

// boundary returns the index of the first fragment matching heading, or
// len(frags) when there is none.
func boundary(frags []types.Fragment, heading func(types.Fragment) bool) int {
	for i, f := range frags {
		if heading(f) {
			return i
		}
	}
	return len(frags)
}
