// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge joins recommendation rows to the evidence records their
// citations point at, through a literature identifier attached to each
// reference entry.
// Implements: RecordMerger (single match, set-valued union, abstract
//
//	fallback); docs/ARCHITECTURE § Record Merging.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// IdentifierLookup finds literature identifiers for a bibliography entry,
// most relevant first.
type IdentifierLookup interface {
	LookupIDs(ctx context.Context, citationText string) ([]string, error)
}

// AbstractFetcher retrieves the title, authors and abstract of a paper.
type AbstractFetcher interface {
	FetchAbstract(ctx context.Context, pmid string) (types.Abstract, error)
}

// Source values of a merged record.
const (
	SourceEvidence = "evidence"
	SourceAbstract = "abstract"
)

// Merger joins one document's charts to its evidence records.
type Merger struct {
	lookup  IdentifierLookup
	fetcher AbstractFetcher
	log     *slog.Logger
}

// New returns a merger. A nil lookup restricts joining to identifiers
// already attached to reference entries; a nil fetcher disables the
// abstract fallback. A nil logger discards output.
func New(lookup IdentifierLookup, fetcher AbstractFetcher, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Merger{lookup: lookup, fetcher: fetcher, log: logger}
}

// Merge joins every row of doc to evidence. For each resolved citation the
// first identifier of its reference entry selects the evidence records
// carrying it: one record is used as is, several are unioned field by field,
// and none falls back to an abstract fetch. Lookup and fetch failures are
// logged and skip the citation; only context cancellation aborts.
func (m *Merger) Merge(ctx context.Context, doc *types.DocumentResult) ([]types.MergedChart, types.Diagnostics, error) {
	var diag types.Diagnostics
	resolver := citation.NewResolver(doc.References, m.log)

	byPMID := make(map[string][]types.EvidenceRecord)
	for _, r := range doc.Records {
		if r.PMID != "" {
			byPMID[r.PMID] = append(byPMID[r.PMID], r)
		}
	}

	ids := make(map[string][]string)
	abstracts := make(map[string]*types.MergedRecord)

	out := make([]types.MergedChart, 0, len(doc.Charts))
	for _, c := range doc.Charts {
		mc := types.MergedChart{Title: c.Title, Subtitle: c.Subtitle, Rows: make([]types.MergedRow, 0, len(c.Rows))}
		for _, row := range c.Rows {
			res := resolver.Resolve(row, &diag)
			mr := types.MergedRow{
				RecommendationRow: row,
				Evidence:          map[string]types.MergedRecord{},
				Unresolved:        res.Unresolved,
			}
			for _, rc := range res.Resolved {
				if err := ctx.Err(); err != nil {
					return nil, diag, err
				}
				pmid, err := m.firstID(ctx, rc, ids)
				if err != nil {
					if ctx.Err() != nil {
						return nil, diag, ctx.Err()
					}
					m.log.Warn("identifier lookup failed", "key", rc.Key, "error", err)
					continue
				}
				if pmid == "" {
					continue
				}
				if _, done := mr.Evidence[pmid]; done {
					continue
				}
				if recs := byPMID[pmid]; len(recs) > 0 {
					mr.Evidence[pmid] = Union(recs)
					continue
				}
				rec, err := m.abstract(ctx, pmid, abstracts)
				if err != nil {
					if ctx.Err() != nil {
						return nil, diag, ctx.Err()
					}
					m.log.Warn("abstract fetch failed", "pmid", pmid, "error", err)
					continue
				}
				if rec != nil {
					mr.Evidence[pmid] = *rec
				}
			}
			mc.Rows = append(mc.Rows, mr)
		}
		out = append(out, mc)
	}
	return out, diag, nil
}

// firstID returns the first identifier for a resolved citation, preferring
// identifiers already attached to the entry. Lookups are cached per key.
func (m *Merger) firstID(ctx context.Context, rc types.ResolvedCitation, cache map[string][]string) (string, error) {
	pmids, ok := cache[rc.Key]
	if !ok {
		pmids = rc.Entry.PMIDs
		if len(pmids) == 0 && m.lookup != nil && rc.Entry.CitationText != "" {
			var err error
			pmids, err = m.lookup.LookupIDs(ctx, rc.Entry.CitationText)
			if err != nil {
				return "", fmt.Errorf("looking up %s: %w", rc.Key, err)
			}
		}
		cache[rc.Key] = pmids
	}
	if len(pmids) == 0 {
		return "", nil
	}
	return pmids[0], nil
}

func (m *Merger) abstract(ctx context.Context, pmid string, cache map[string]*types.MergedRecord) (*types.MergedRecord, error) {
	if m.fetcher == nil {
		return nil, nil
	}
	if rec, ok := cache[pmid]; ok {
		return rec, nil
	}
	a, err := m.fetcher.FetchAbstract(ctx, pmid)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pmid, err)
	}
	rec := &types.MergedRecord{
		Source:   SourceAbstract,
		Title:    a.Title,
		Authors:  strings.Join(a.Authors, ", "),
		Abstract: a.Abstract,
	}
	cache[pmid] = rec
	return rec, nil
}

// Union merges evidence records sharing an identifier. Each field holds the
// distinct values seen across the records; a field on which all records
// agree holds a single value.
func Union(recs []types.EvidenceRecord) types.MergedRecord {
	out := types.MergedRecord{Source: SourceEvidence, Rows: len(recs), Fields: map[string]types.FieldValue{}}
	add := func(k, v string) {
		if v == "" {
			return
		}
		fv := out.Fields[k]
		fv.Add(v)
		out.Fields[k] = fv
	}
	for _, r := range recs {
		add("pmid", r.PMID)
		add("acronym", r.Acronym)
		add("author", r.Author)
		add("year", r.Year)
		add("table", r.Table)
		for k, v := range r.Fields {
			add(k, v)
		}
		for _, ref := range r.References {
			add("references", ref)
		}
	}
	return out
}
