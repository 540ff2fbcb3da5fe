// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{StoreDir: filepath.Join(t.TempDir(), "store")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDocument(name string) *types.DocumentResult {
	return &types.DocumentResult{
		Name: name,
		Charts: []types.Chart{
			{
				Title:    "Recommendations for Statin Therapy",
				Position: 10,
				Rows: []types.RecommendationRow{
					{Classification: "I", EvidenceLevel: "A", Text: "Statin therapy is recommended for adults with LDL above 190 (S4-1).", Citations: []string{"S4-1"}, Position: 11},
					{Classification: "IIa", EvidenceLevel: "B-NR", Text: "Ezetimibe is reasonable when LDL remains high (S4-2).", Citations: []string{"S4-2"}, Position: 15},
				},
			},
			{
				Title:    "Recommendations for Blood Pressure",
				Position: 40,
				Rows: []types.RecommendationRow{
					{Classification: "I", EvidenceLevel: "B-R", Text: "Lifestyle change is recommended for elevated blood pressure.", Position: 41, Truncated: true},
				},
			},
		},
		References: types.NewReferenceTable([]types.ReferenceEntry{
			{Key: "S4-1", CitationText: "Smith et al. 2020.", PMIDs: []string{"12345678"}},
			{Key: "S4-2", CitationText: "Jones et al. 2019."},
		}),
		Records: []types.EvidenceRecord{
			{PMID: "12345678", Author: "Smith", Year: "2020", Fields: map[string]string{"summary": "LDL down"}, Table: "Statin Trials", Confidence: types.ConfidenceHeaderAgrees},
		},
		Diagnostics: types.Diagnostics{UnresolvedCitations: 1},
	}
}

func TestIngestAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	updated, err := s.Ingest(ctx, testDocument("acc-2018"))
	require.NoError(t, err)
	assert.False(t, updated)

	tests := []struct {
		name  string
		opts  QueryOptions
		texts []string
	}{
		{"full text", QueryOptions{Query: "ezetimibe"}, []string{"Ezetimibe is reasonable when LDL remains high (S4-2)."}},
		{"full text with filter", QueryOptions{Query: "recommended", EvidenceLevel: "B-R"}, []string{"Lifestyle change is recommended for elevated blood pressure."}},
		{"class filter", QueryOptions{Classification: "I"}, []string{
			"Statin therapy is recommended for adults with LDL above 190 (S4-1).",
			"Lifestyle change is recommended for elevated blood pressure.",
		}},
		{"max results", QueryOptions{Document: "acc-2018", MaxResults: 1}, []string{"Statin therapy is recommended for adults with LDL above 190 (S4-1)."}},
		{"unknown document", QueryOptions{Document: "other"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(ctx, tt.opts)
			require.NoError(t, err)
			var texts []string
			for _, r := range results {
				texts = append(texts, r.Text)
			}
			assert.Equal(t, tt.texts, texts)
		})
	}

	results, err := s.Search(ctx, QueryOptions{Query: "statin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "acc-2018", r.Document)
	assert.Equal(t, "Recommendations for Statin Therapy", r.ChartTitle)
	assert.Equal(t, types.Classification("I"), r.Classification)
	assert.Equal(t, []string{"S4-1"}, r.Citations)
	assert.Equal(t, 11, r.Position)

	results, err = s.Search(ctx, QueryOptions{Query: "lifestyle"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Truncated)
}

func TestIngest_ReplacesDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Ingest(ctx, testDocument("acc-2018"))
	require.NoError(t, err)

	doc := testDocument("acc-2018")
	doc.Charts = doc.Charts[:1]
	doc.Charts[0].Rows = doc.Charts[0].Rows[:1]
	doc.Charts[0].Rows[0].Text = "Statin therapy remains recommended."
	updated, err := s.Ingest(ctx, doc)
	require.NoError(t, err)
	assert.True(t, updated)

	all, err := s.Search(ctx, QueryOptions{Document: "acc-2018"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Statin therapy remains recommended.", all[0].Text)

	old, err := s.Search(ctx, QueryOptions{Query: "ezetimibe"})
	require.NoError(t, err)
	assert.Empty(t, old)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].Charts)
	assert.Equal(t, 1, docs[0].Rows)
	assert.NotEmpty(t, docs[0].IngestedAt)
}

func TestIngest_NoName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Ingest(context.Background(), &types.DocumentResult{})
	assert.Error(t, err)
}

func TestIngestAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var buf bytes.Buffer

	summary, err := s.IngestAll(ctx, []*types.DocumentResult{testDocument("a"), {}, testDocument("b")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Indexed: 2, Failed: 1}, summary)
	assert.Contains(t, buf.String(), "indexing a (3 rows)")
	assert.Contains(t, buf.String(), "failed  :")

	buf.Reset()
	summary, err = s.IngestAll(ctx, []*types.DocumentResult{testDocument("a")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Total())
	assert.Contains(t, buf.String(), "indexed: 0, updated: 1, failed: 0")
}

func TestEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ingest(ctx, testDocument("acc-2018"))
	require.NoError(t, err)

	recs, err := s.Evidence(ctx, "12345678")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Smith", recs[0].Author)
	assert.Equal(t, "LDL down", recs[0].Fields["summary"])
	assert.Equal(t, types.ConfidenceHeaderAgrees, recs[0].Confidence)

	recs, err = s.Evidence(ctx, "999")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReopenKeepsData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := NewStore(types.StoreConfig{StoreDir: dir})
	require.NoError(t, err)
	_, err = s.Ingest(context.Background(), testDocument("acc-2018"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(types.StoreConfig{StoreDir: dir})
	require.NoError(t, err)
	defer s.Close()
	results, err := s.Search(context.Background(), QueryOptions{Query: "ezetimibe"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ingest(ctx, testDocument("acc-2018"))
	require.NoError(t, err)

	path, err := s.ExportJSON(ctx, QueryOptions{Classification: "IIa"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON []Result
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, "acc-2018", fromJSON[0].Document)
	assert.Equal(t, types.EvidenceLevel("B-NR"), fromJSON[0].EvidenceLevel)

	path, err = s.ExportYAML(ctx, QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "export.yaml", filepath.Base(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var fromYAML []Result
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Len(t, fromYAML, 3)

	path, err = s.ExportJSON(ctx, QueryOptions{Document: "none"})
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestQueryOptions_IsEmpty(t *testing.T) {
	assert.True(t, QueryOptions{MaxResults: 5}.IsEmpty())
	assert.False(t, QueryOptions{Document: "a"}.IsEmpty())
}
