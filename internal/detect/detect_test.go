// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

func texts(ss ...string) []types.Fragment {
	out := make([]types.Fragment, len(ss))
	for i, s := range ss {
		out[i] = types.Fragment{Text: s}
	}
	return out
}

func lefts(ls ...int) []types.Fragment {
	out := make([]types.Fragment, len(ls))
	for i, l := range ls {
		out[i] = types.Fragment{Left: l}
	}
	return out
}

func TestCitationVersion(t *testing.T) {
	tests := []struct {
		name  string
		frags []types.Fragment
		want  types.CitationVersion
	}{
		{"sectioned", texts("Intro", "Do X (S4.1-3)."), types.CitationSectioned},
		{"numeric", texts("Intro", "Do X (12)."), types.CitationNumeric},
		{"first match wins", texts("see (3)", "S2.1-1, S2.1-2"), types.CitationNumeric},
		{"default", texts("no citations here"), types.CitationSectioned},
		{"empty", nil, types.CitationSectioned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationVersion(tt.frags))
		})
	}
}

func TestChartFormat(t *testing.T) {
	five := texts("Recommendations for A", "recommendations for B", "RECOMMENDATIONS FOR C", "Recommendations for D", "Recommendations for E")
	assert.Equal(t, types.ChartFormatA, ChartFormat(five))

	six := append(five, types.Fragment{Text: "See Recommendations for F below"})
	assert.Equal(t, types.ChartFormatB, ChartFormat(six))

	assert.Equal(t, types.ChartFormatA, ChartFormat(texts("Recommendation for one")))
}

func TestLeftMargins(t *testing.T) {
	tests := []struct {
		name         string
		frags        []types.Fragment
		down, upWant int
	}{
		{"two clusters", lefts(63, 64, 65, 66, 110, 112, 300), 60, 110},
		{"duplicates count once", lefts(63, 63, 63, 63, 110, 111, 300), 110, 60},
		{"ties go to smaller offset", lefts(300, 72, 150), 70, 150},
		{"single bin", lefts(63, 64, 65), DefaultLeftDown, DefaultLeftUp},
		{"non-positive ignored", lefts(0, -5), DefaultLeftDown, DefaultLeftUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			down, up := LeftMargins(tt.frags)
			assert.Equal(t, tt.down, down)
			assert.Equal(t, tt.upWant, up)
		})
	}
}

func TestConfig(t *testing.T) {
	frags := []types.Fragment{
		{Text: "Recommendations for X", Left: 63},
		{Text: "Do X (12).", Left: 64},
		{Text: "I", Left: 120},
		{Text: "A", Left: 125},
	}
	cfg := Config("docs/statins", "guideline.xml", frags)

	assert.Equal(t, "statins", cfg.Name)
	assert.Equal(t, "docs/statins", cfg.Directory)
	assert.Equal(t, "guideline.xml", cfg.GuidelineXML)
	assert.Equal(t, types.ChartFormatA, cfg.ChartFormat)
	assert.Equal(t, types.CitationNumeric, cfg.CitationVersion)
	assert.Equal(t, types.SupplementV1, cfg.SupplementVersion)
	assert.Equal(t, 60, cfg.Thresholds.LeftDown)
	assert.Equal(t, 120, cfg.Thresholds.LeftUp)
	assert.Equal(t, 100, cfg.Thresholds.RowStartMax)
}

const guidelineXML = `<?xml version="1.0" encoding="UTF-8"?>
<pdf2xml>
<page number="1" position="absolute" top="0" left="0" height="1188" width="918">
<fontspec id="0" size="12" family="Times" color="#000000"/>
<text top="100" left="63" width="300" height="14" font="0"><b>Recommendations for managing X</b></text>
<text top="120" left="90" width="30" height="12" font="0">Do Y (S4-1).</text>
</page>
</pdf2xml>`

func TestDirectory(t *testing.T) {
	root := t.TempDir()
	statins := filepath.Join(root, "statins")
	require.NoError(t, os.MkdirAll(statins, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(statins, "guideline.xml"), []byte(guidelineXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(statins, "data-supplement.xml"), []byte(guidelineXML), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	m, err := Directory(root)
	require.NoError(t, err)
	require.Len(t, m.Documents, 1)

	cfg := m.Documents[0]
	assert.Equal(t, "statins", cfg.Name)
	assert.Equal(t, statins, cfg.Directory)
	assert.Equal(t, "guideline.xml", cfg.GuidelineXML)
	assert.Equal(t, "data-supplement.xml", cfg.SupplementXML)
	assert.Equal(t, types.CitationSectioned, cfg.CitationVersion)
	assert.Equal(t, 60, cfg.Thresholds.LeftDown)
	assert.Equal(t, 90, cfg.Thresholds.LeftUp)
}

func TestDirectory_Missing(t *testing.T) {
	_, err := Directory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
