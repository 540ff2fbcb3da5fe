// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"regexp"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Classifications lists every accepted Class of Recommendation marker, in
// both the Arabic (2019+) and Roman (pre-2019) conventions.
var Classifications = []types.Classification{
	"1", "2a", "2b", "3", "3: No Benefit", "3: Harm",
	"I", "IIa", "IIb", "III",
}

// EvidenceLevels lists every accepted Level of Evidence marker.
var EvidenceLevels = []types.EvidenceLevel{
	"A", "B", "C", "B-R", "B-NR", "C-LD", "C-EO",
}

var (
	corSet = func() map[string]types.Classification {
		m := make(map[string]types.Classification, len(Classifications))
		for _, c := range Classifications {
			m[string(c)] = c
		}
		return m
	}()
	loeSet = func() map[string]types.EvidenceLevel {
		m := make(map[string]types.EvidenceLevel, len(EvidenceLevels))
		for _, l := range EvidenceLevels {
			m[string(l)] = l
		}
		return m
	}()

	// levelPrefix matches the "LEVEL B-NR" and "LOE: C" spellings used in
	// font-driven class blocks.
	levelPrefix = regexp.MustCompile(`^(?:LEVEL|LOE)\s*:?\s*(\S+)$`)

	enumerator = regexp.MustCompile(`^\d+\.$`)
)

// ParseClassification returns the classification s names exactly.
func ParseClassification(s string) (types.Classification, bool) {
	c, ok := corSet[strings.TrimSpace(s)]
	return c, ok
}

// ParseEvidenceLevel returns the evidence level s names exactly. En dashes
// are accepted in place of hyphens.
func ParseEvidenceLevel(s string) (types.EvidenceLevel, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "–", "-")
	l, ok := loeSet[s]
	return l, ok
}

// parseLevelFragment accepts a bare evidence level or a "LEVEL x" fragment.
func parseLevelFragment(s string) (types.EvidenceLevel, bool) {
	if l, ok := ParseEvidenceLevel(s); ok {
		return l, true
	}
	if m := levelPrefix.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return ParseEvidenceLevel(m[1])
	}
	return "", false
}

// ClassFilter restricts the classifications a segmenter emits. The zero
// value accepts every known classification.
type ClassFilter map[types.Classification]bool

// NewClassFilter builds a filter from marker strings. Unknown markers are
// ignored; an empty list yields a filter that accepts everything.
func NewClassFilter(markers []string) ClassFilter {
	if len(markers) == 0 {
		return nil
	}
	f := ClassFilter{}
	for _, m := range markers {
		if c, ok := ParseClassification(m); ok {
			f[c] = true
		}
	}
	return f
}

// Allows reports whether c passes the filter.
func (f ClassFilter) Allows(c types.Classification) bool {
	return len(f) == 0 || f[c]
}

// dropEnumerator removes a leading "1." style list enumerator.
func dropEnumerator(text string) string {
	first, rest, ok := strings.Cut(text, " ")
	if ok && enumerator.MatchString(first) {
		return strings.TrimSpace(rest)
	}
	return text
}
