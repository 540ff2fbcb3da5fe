// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation parses in-text citation groups, expands citation ranges,
// builds reference tables from bibliography sections, and resolves
// citation keys against them.
// Implements: CitationResolver (grammar versions 1 and 2);
//
//	ReferenceListExtractor (list formats a and b);
//	docs/ARCHITECTURE § Citations.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// maxRangeSpan bounds range expansion so a mistyped range such as
// "S4-1—S4-19999" cannot flood a row with keys.
const maxRangeSpan = 500

var (
	// sectionedGroup captures the trailing citation group of a
	// recommendation, with or without surrounding parentheses.
	sectionedGroup = regexp.MustCompile(`\(?([S\d–—,\s.-]+)(?:[).\s]+)?$`)

	// numericGroup captures a parenthesised list of integers and ranges.
	numericGroup = regexp.MustCompile(`\((\d+(?:\s*[-–—]\s*\d+)?(?:\s*,\s*\d+(?:\s*[-–—]\s*\d+)?)*)\)`)

	rangeDash = regexp.MustCompile(`\s*[–—]\s*`)
	numDash   = regexp.MustCompile(`\s*[-–—]\s*`)
)

// ParseTokens extracts the citation group trailing text and expands it into
// concrete reference keys using the grammar for version. Text without a
// citation group yields nil.
func ParseTokens(text string, version types.CitationVersion) []string {
	if version == types.CitationNumeric {
		all := numericGroup.FindAllStringSubmatch(text, -1)
		if len(all) == 0 {
			return nil
		}
		return ExpandNumeric(all[len(all)-1][1])
	}

	m := sectionedGroup.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	group := strings.Trim(m[1], " .")
	if !strings.Contains(group, "S") {
		return nil
	}
	return ExpandSectioned(group)
}

// Expand expands a bare citation group using the grammar for version.
func Expand(group string, version types.CitationVersion) []string {
	if version == types.CitationNumeric {
		return ExpandNumeric(group)
	}
	return ExpandSectioned(group)
}

// ExpandSectioned expands a comma separated group of section keys. A range
// "S6.3.3-1—S6.3.3-7" (em or en dash) expands by incrementing the trailing
// integer while the section base is held constant; the range end may repeat
// the base or be a bare integer. Ranges whose bases differ are kept as their
// two endpoints.
func ExpandSectioned(group string) []string {
	var keys []string
	for _, part := range strings.Split(group, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ends := rangeDash.Split(part, 2)
		if len(ends) == 1 {
			if k := strings.ReplaceAll(part, " ", ""); strings.HasPrefix(k, "S") {
				keys = append(keys, k)
			}
			continue
		}
		keys = append(keys, expandSectionedRange(ends[0], ends[1])...)
	}
	return keys
}

func expandSectionedRange(startKey, endKey string) []string {
	startKey = strings.ReplaceAll(startKey, " ", "")
	endKey = strings.ReplaceAll(endKey, " ", "")

	base, start, err := splitSectionKey(startKey)
	if err != nil {
		return nonEmpty(startKey, endKey)
	}

	endBase, end := base, 0
	if i := strings.LastIndex(endKey, "-"); i >= 0 {
		endBase = endKey[:i]
		end, err = strconv.Atoi(endKey[i+1:])
	} else {
		end, err = strconv.Atoi(endKey)
	}
	if err != nil || endBase != base || end < start || end-start > maxRangeSpan {
		return nonEmpty(startKey, endKey)
	}

	keys := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		keys = append(keys, fmt.Sprintf("%s-%d", base, n))
	}
	return keys
}

func splitSectionKey(key string) (string, int, error) {
	i := strings.LastIndex(key, "-")
	if i <= 0 {
		return "", 0, fmt.Errorf("section key %q has no trailing index", key)
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("section key %q: %w", key, err)
	}
	return key[:i], n, nil
}

// ExpandNumeric expands a comma separated group of integers and integer
// ranges joined by a hyphen, en dash or em dash: "12,14-16" yields
// 12, 14, 15, 16.
func ExpandNumeric(group string) []string {
	var keys []string
	for _, part := range strings.Split(strings.Trim(group, "() "), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ends := numDash.Split(part, 2)
		start, err := strconv.Atoi(ends[0])
		if err != nil {
			continue
		}
		if len(ends) == 1 {
			keys = append(keys, strconv.Itoa(start))
			continue
		}
		end, err := strconv.Atoi(ends[1])
		if err != nil || end < start || end-start > maxRangeSpan {
			keys = append(keys, strconv.Itoa(start))
			continue
		}
		for n := start; n <= end; n++ {
			keys = append(keys, strconv.Itoa(n))
		}
	}
	return keys
}

func nonEmpty(ss ...string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
