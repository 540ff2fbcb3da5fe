// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/guideline-engine/internal/chart"
	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/internal/evidence"
	"github.com/pdiddy/guideline-engine/internal/fragment"
	"github.com/pdiddy/guideline-engine/internal/store"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

type chartsResponse struct {
	Charts      []types.Chart     `json:"charts"`
	References  map[string]string `json:"references"`
	Diagnostics types.Diagnostics `json:"diagnostics"`
}

type evidenceResponse struct {
	Records     []types.EvidenceRecord `json:"records"`
	Tables      []types.EvidenceTable  `json:"tables"`
	Diagnostics types.Diagnostics      `json:"diagnostics"`
}

// handleCharts segments the uploaded guideline XML into charts and
// extracts its reference list.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := types.ChartFormat(strings.ToUpper(q.Get("format")))
	if format == "" {
		format = types.ChartFormatA
	}
	if !format.Valid() {
		jsonError(w, fmt.Sprintf("unknown format %q", q.Get("format")), http.StatusBadRequest)
		return
	}
	version := types.CitationSectioned
	if v := q.Get("citations"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !types.CitationVersion(n).Valid() {
			jsonError(w, fmt.Sprintf("unknown citations version %q", v), http.StatusBadRequest)
			return
		}
		version = types.CitationVersion(n)
	}
	thresholds, err := thresholdsFromQuery(q)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, ok := s.decode(w, r)
	if !ok {
		return
	}

	log := s.log.With("path", r.URL.Path)
	charts, state, err := chart.Segment(doc.Fragments, format, chart.Options{
		Thresholds:  thresholds,
		Fonts:       fontsFromQuery(q),
		ClassFilter: chart.NewClassFilter(splitList(q.Get("class"))),
		Citations:   version,
		Logger:      log,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	refs := citation.ExtractReferences(doc.Fragments, version)
	diag := state.Diagnostics
	resolver := citation.NewResolver(refs, log)
	for _, c := range charts {
		for _, row := range c.Rows {
			resolver.Resolve(row, &diag)
		}
	}

	if charts == nil {
		charts = []types.Chart{}
	}
	writeJSON(w, http.StatusOK, chartsResponse{Charts: charts, References: refs.Map(), Diagnostics: diag})
}

// handleEvidence reconstructs the evidence tables of an uploaded data
// supplement.
func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	version := types.SupplementV1
	if v := q.Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !types.SupplementVersion(n).Valid() {
			jsonError(w, fmt.Sprintf("unknown supplement version %q", v), http.StatusBadRequest)
			return
		}
		version = types.SupplementVersion(n)
	}
	thresholds, err := thresholdsFromQuery(q)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, ok := s.decode(w, r)
	if !ok {
		return
	}

	res := evidence.Parse(doc.Fragments, evidence.Options{
		Version:    version,
		Thresholds: thresholds,
		Logger:     s.log.With("path", r.URL.Path),
	})
	if res.Records == nil {
		res.Records = []types.EvidenceRecord{}
	}
	if res.Tables == nil {
		res.Tables = []types.EvidenceTable{}
	}
	writeJSON(w, http.StatusOK, evidenceResponse{Records: res.Records, Tables: res.Tables, Diagnostics: res.Diagnostics})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*fragment.Document, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	doc, err := fragment.DecodeXML(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "invalid converter XML: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if doc.Len() == 0 {
		jsonError(w, "document has no text fragments", http.StatusBadRequest)
		return nil, false
	}
	return doc, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.QueryOptions{
		Query:          q.Get("q"),
		Classification: types.Classification(q.Get("class")),
		EvidenceLevel:  types.EvidenceLevel(q.Get("loe")),
		Document:       q.Get("document"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		opts.MaxResults = n
	}
	if opts.IsEmpty() {
		jsonError(w, "at least one of q, class, loe or document is required", http.StatusBadRequest)
		return
	}

	results, err := s.store.Search(r.Context(), opts)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []store.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Documents(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleEvidenceByPMID(w http.ResponseWriter, r *http.Request) {
	pmid := chi.URLParam(r, "pmid")
	recs, err := s.store.Evidence(r.Context(), pmid)
	if err != nil {
		jsonError(w, "evidence lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(recs) == 0 {
		jsonError(w, "no evidence for "+pmid, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pmid": pmid, "records": recs})
}

// thresholdsFromQuery reads threshold overrides named by their manifest
// keys. Unset values fall back to the defaults.
func thresholdsFromQuery(q url.Values) (types.Thresholds, error) {
	var t types.Thresholds
	fields := map[string]*int{
		"left_down":            &t.LeftDown,
		"left_up":              &t.LeftUp,
		"row_start_max":        &t.RowStartMax,
		"row_field_gap":        &t.RowFieldGap,
		"continuation_window":  &t.ContinuationWindow,
		"cell_tolerance":       &t.CellTolerance,
		"min_starter_len":      &t.MinStarterLen,
		"max_starter_len":      &t.MaxStarterLen,
		"max_continuation_len": &t.MaxContinuationLen,
		"max_lookahead":        &t.MaxLookahead,
		"subtitle_lookahead":   &t.SubtitleLookahead,
	}
	for name, dst := range fields {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return t, fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = n
	}
	return t.WithDefaults(), nil
}

func fontsFromQuery(q url.Values) types.FontSelectors {
	return types.FontSelectors{
		Title:    splitList(q.Get("title_font")),
		Subtitle: q.Get("subtitle_font"),
		Class:    q.Get("class_font"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
