// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// QueryOptions holds recommendation search parameters.
type QueryOptions struct {
	// Query is an FTS5 full-text search string over recommendation text.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	Classification types.Classification `json:"classification,omitempty" yaml:"classification,omitempty"`
	EvidenceLevel  types.EvidenceLevel  `json:"evidence_level,omitempty" yaml:"evidence_level,omitempty"`
	Document       string               `json:"document,omitempty" yaml:"document,omitempty"`

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Classification == "" && q.EvidenceLevel == "" && q.Document == ""
}

// Result is a stored recommendation with its document and chart.
type Result struct {
	types.RecommendationRow `yaml:",inline"`

	Document   string `json:"document" yaml:"document"`
	ChartTitle string `json:"chart_title" yaml:"chart_title"`
}

// Search queries stored recommendations. Full-text queries are ranked by
// relevance; filter-only queries are ordered by document, chart and
// position.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)
	if useFTS {
		qb.WriteString(
			`SELECT r.document, c.title, r.classification, r.evidence_level, r.text,
				r.citations, r.position, r.truncated
			FROM recommendations_fts
			JOIN recommendations r ON r.rowid = recommendations_fts.rowid
			JOIN charts c ON c.id = r.chart_id
			WHERE recommendations_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.document, c.title, r.classification, r.evidence_level, r.text,
				r.citations, r.position, r.truncated
			FROM recommendations r
			JOIN charts c ON c.id = r.chart_id
			WHERE 1=1`)
	}

	if opts.Classification != "" {
		qb.WriteString(` AND r.classification = ?`)
		args = append(args, string(opts.Classification))
	}
	if opts.EvidenceLevel != "" {
		qb.WriteString(` AND r.evidence_level = ?`)
		args = append(args, string(opts.EvidenceLevel))
	}
	if opts.Document != "" {
		qb.WriteString(` AND r.document = ?`)
		args = append(args, opts.Document)
	}

	if useFTS {
		qb.WriteString(` ORDER BY recommendations_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.document, c.ordinal, r.position`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r       Result
			class   string
			level   string
			citJSON sql.NullString
		)
		if err := rows.Scan(&r.Document, &r.ChartTitle, &class, &level, &r.Text, &citJSON, &r.Position, &r.Truncated); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Classification = types.Classification(class)
		r.EvidenceLevel = types.EvidenceLevel(level)
		if citJSON.Valid {
			json.Unmarshal([]byte(citJSON.String), &r.Citations)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
