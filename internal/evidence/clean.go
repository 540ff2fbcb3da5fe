// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

var (
	identifierPattern = regexp.MustCompile(`^([\w\s,-]+(?:et al\.)?)?\W+(\d{4})?.*(?:\(\d+\))?\W+(\d+)\W*`)
	acronymNoise      = regexp.MustCompile(`Study\s?Acronym\s?;|\s?Author\s?;|\s?Year\s?Published`)
	bullets           = regexp.MustCompile(`\x{25cf}|\x{2022}`)
)

// Identifier is the study identification parsed from a row's first cell.
type Identifier struct {
	Acronym string
	Author  string
	Year    string
	PMID    string
}

// ParseIdentifier splits an "acronym, author, year, PMID" cell. Bold titles
// found in the cell form the acronym; the remainder is matched for author,
// year and the trailing PubMed ID. ok is false when no PubMed ID is found.
func ParseIdentifier(cell string, titles []string) (Identifier, bool) {
	cell = strings.ReplaceAll(cell, "●", "")

	var id Identifier
	var found []string
	for _, t := range titles {
		if len(t) > 1 && strings.Contains(cell, t) {
			found = append(found, t)
		}
	}
	if len(found) > 0 {
		re := alternation(found, `\s*`)
		var parts []string
		for _, m := range re.FindAllString(cell, -1) {
			parts = append(parts, strings.TrimSpace(m))
		}
		id.Acronym = strings.TrimSpace(acronymNoise.ReplaceAllString(strings.Join(parts, " "), ""))
		if id.Acronym != "" {
			cell = strings.TrimSpace(strings.Replace(cell, id.Acronym, "", 1))
		}
	}

	m := identifierPattern.FindStringSubmatch(cell)
	if m == nil {
		return id, false
	}
	id.Author = strings.TrimRight(strings.TrimSpace(m[1]), ", ")
	id.Year = m[2]
	id.PMID = m[3]
	return id, true
}

// cleanTitles normalises a row's run-in titles: a bare digit becomes an
// ordinal endpoint heading ("1° endpoint") and the generic "endpoint" title
// is removed.
func cleanTitles(titles []string) []string {
	var out []string
	for _, t := range titles {
		switch {
		case t == "endpoint":
			continue
		case isDigits(t):
			t = t + "° endpoint"
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// SplitFields splits each field value on "Title:" run-in headings, moving
// the text after a heading into a field named by it. Bullet glyphs divide a
// value into items joined with "; ".
func SplitFields(fields map[string]string, titles []string) map[string]string {
	out := make(map[string]string, len(fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var heading *regexp.Regexp
	if len(titles) > 0 {
		heading = alternation(titles, `\s*:`)
	}

	for _, k := range keys {
		v := fields[k]
		if heading == nil {
			out[k] = bulletItems(v)
			continue
		}
		locs := heading.FindAllStringSubmatchIndex(v, -1)
		if len(locs) == 0 {
			out[k] = bulletItems(v)
			continue
		}

		for i, loc := range locs {
			title := v[loc[2]:loc[3]]
			end := len(v)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			out[title] = strings.TrimSpace(bullets.ReplaceAllString(v[loc[1]:end], ""))
		}
		if lead := strings.TrimSpace(bullets.ReplaceAllString(v[:locs[0][0]], "")); lead != "" {
			out[k] = lead
		}
	}
	return out
}

func bulletItems(v string) string {
	var items []string
	for _, s := range bullets.Split(strings.TrimSpace(v), -1) {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return strings.Join(items, "; ")
}

// alternation compiles (t1|t2|...) followed by suffix, longest titles first
// so a title that prefixes another does not shadow it.
func alternation(titles []string, suffix string) *regexp.Regexp {
	sorted := slices.Clone(titles)
	sort.SliceStable(sorted, func(a, b int) bool { return len(sorted[a]) > len(sorted[b]) })
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(` + strings.Join(quoted, "|") + `)` + suffix)
}

// BuildRecord turns a mapped row into an evidence record. The identifier
// field, when present, is parsed for acronym, author, year and PubMed ID and
// removed from Fields. Version 3 rows carry resolved reference texts instead
// of a PubMed ID.
func BuildRecord(t types.EvidenceTable, row types.EvidenceRow, fields map[string]string, confidence types.MappingConfidence, v types.SupplementVersion, refs *types.ReferenceTable) (types.EvidenceRecord, []string) {
	titles := cleanTitles(row.Titles)
	rec := types.EvidenceRecord{Table: t.Title, Confidence: confidence}

	if cell, ok := fields[IdentifierField]; ok {
		delete(fields, IdentifierField)
		id, _ := ParseIdentifier(cell, titles)
		rec.Acronym, rec.Author, rec.Year = id.Acronym, id.Author, id.Year
		if v != types.SupplementV3 {
			rec.PMID = id.PMID
		}
	}
	rec.Fields = SplitFields(fields, titles)

	var missing []string
	if v == types.SupplementV3 {
		for _, key := range row.References {
			if e, ok := refs.Lookup(key); ok {
				rec.References = append(rec.References, e.CitationText)
				continue
			}
			missing = append(missing, key)
		}
	}
	return rec, missing
}
