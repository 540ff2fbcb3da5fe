// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

func texts(ss ...string) []types.Fragment {
	out := make([]types.Fragment, len(ss))
	for i, s := range ss {
		out[i] = types.Fragment{Text: s, Left: 63, FontID: "1"}
	}
	return out
}

func fontFrag(text, font string) types.Fragment {
	return types.Fragment{Text: text, Left: 63, FontID: font}
}

var cFonts = types.FontSelectors{Title: []string{"5"}, Subtitle: "6", Class: "7"}

func TestSegment_EndToEnd(t *testing.T) {
	stream := texts("Recommendations for managing X", "IIa", "B-NR", "Do Y (S4-1).")
	want := types.RecommendationRow{
		Classification: "IIa",
		EvidenceLevel:  "B-NR",
		Text:           "Do Y (S4-1).",
		Citations:      []string{"S4-1"},
		Position:       1,
	}

	for _, format := range []types.ChartFormat{types.ChartFormatA, types.ChartFormatB} {
		t.Run(string(format), func(t *testing.T) {
			charts, st, err := Segment(stream, format, Options{})
			require.NoError(t, err)
			require.Len(t, charts, 1)
			assert.Equal(t, "Recommendations for managing X", charts[0].Title)
			assert.Equal(t, 0, charts[0].Position)
			require.Len(t, charts[0].Rows, 1)
			assert.Equal(t, want, charts[0].Rows[0])
			assert.Equal(t, 1, st.ChartIndex)
			assert.Equal(t, 0, st.Dropped)
			assert.Equal(t, len(stream), st.Position)
		})
	}
}

func TestFormatA_TitleAndSentinels(t *testing.T) {
	stream := texts(
		"4.1. Statin Therapy",
		"Recommendations for Statin Therapy",
		"Referenced studies that support",
		"COR", "LOE", "RECOMMENDATIONS",
		"I", "A",
		"1. In adults, do Y",
		"S4.1-1—S4.1-3",
		"body text",
	)
	charts, _, err := Segment(stream, types.ChartFormatA, Options{})
	require.NoError(t, err)
	require.Len(t, charts, 1)

	c := charts[0]
	assert.Equal(t, "4.1. Statin Therapy", c.Title)
	assert.Equal(t, "Recommendations for Statin Therapy Referenced studies that support", c.Subtitle)
	assert.Equal(t, 1, c.Position)
	require.Len(t, c.Rows, 1)
	assert.Equal(t, "In adults, do Y S4.1-1—S4.1-3", c.Rows[0].Text)
	assert.Equal(t, []string{"S4.1-1", "S4.1-2", "S4.1-3"}, c.Rows[0].Citations)
}

func TestFormatA_MultipleCharts(t *testing.T) {
	type chartWant struct {
		title, subtitle string
		rows            []string
	}
	tests := []struct {
		name   string
		stream []types.Fragment
		want   []chartWant
	}{
		{
			name: "row left open before the next section",
			stream: texts(
				"4.1. Statin Therapy", "Recommendations for Statin Therapy", "COR", "LOE", "RECOMMENDATIONS",
				"IIa", "B-NR", "Statins are reasonable in adults",
				"4.2. Diet", "Recommendations for Diet", "COR", "LOE", "RECOMMENDATIONS",
				"IIb", "B-R", "Diet may be considered (S4.2-1).",
			),
			want: []chartWant{
				{"4.1. Statin Therapy", "Recommendations for Statin Therapy", []string{"Statins are reasonable in adults"}},
				{"4.2. Diet", "Recommendations for Diet", []string{"Diet may be considered (S4.2-1)."}},
			},
		},
		{
			name: "header right after a closed row",
			stream: texts(
				"Recommendations for A", "IIa", "B-NR", "Do Y (S4-1).",
				"Recommendations for B", "IIb", "B-R", "Do Z (S4-2).",
			),
			want: []chartWant{
				{"Recommendations for A", "", []string{"Do Y (S4-1)."}},
				{"Recommendations for B", "", []string{"Do Z (S4-2)."}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charts, st, err := Segment(tt.stream, types.ChartFormatA, Options{})
			require.NoError(t, err)
			require.Len(t, charts, len(tt.want))
			assert.Equal(t, len(tt.want), st.ChartIndex)
			assert.Equal(t, 0, st.RejectedHeaders)
			for i, w := range tt.want {
				assert.Equal(t, w.title, charts[i].Title)
				assert.Equal(t, w.subtitle, charts[i].Subtitle)
				var rows []string
				for _, row := range charts[i].Rows {
					rows = append(rows, row.Text)
				}
				assert.Equal(t, w.rows, rows)
			}
		})
	}
}

func TestFormatA_HeaderFirstIsNotRepeated(t *testing.T) {
	stream := texts("Recommendations for X", "Adults only", "COR", "LOE", "I", "A", "Do Y (S1-1).")
	charts, _, err := Segment(stream, types.ChartFormatA, Options{})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "Recommendations for X", charts[0].Title)
	assert.Equal(t, "Adults only", charts[0].Subtitle)
}

func TestFormatA_RejectsHeaderWithoutSentinel(t *testing.T) {
	stream := texts("Title", "Recommendations for Y", "a", "b", "c", "d", "e", "IIa", "B-NR", "Do Y (S1-1).")
	charts, st, err := Segment(stream, types.ChartFormatA, Options{})
	require.NoError(t, err)
	assert.Empty(t, charts)
	assert.Equal(t, 1, st.RejectedHeaders)
	assert.Equal(t, 1, st.Dropped, "row outside any chart is dropped")
	assert.Equal(t, 1, st.Diagnostics.MalformedRows)
}

func TestFormatB_Accumulation(t *testing.T) {
	stream := texts(
		"Recommendations for X", "Synopsis",
		"2a", "B-R", "Do Y in", "adults (12)", ".",
		"I", "A", "Do Z",
		"IIa", "B-NR", "Do W (13).",
	)
	charts, _, err := Segment(stream, types.ChartFormatB, Options{Citations: types.CitationNumeric})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "Synopsis", charts[0].Subtitle)

	rows := charts[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Do Y in adults (12).", rows[0].Text)
	assert.Equal(t, []string{"12"}, rows[0].Citations)
	assert.Equal(t, "Do Z", rows[1].Text, "accumulation stops before the next row")
	assert.Equal(t, []string{}, rows[1].Citations)
	assert.Equal(t, "Do W (13).", rows[2].Text)
}

func TestFormatB_Truncation(t *testing.T) {
	stream := texts("Recommendations for X", "sub", "I", "A", "a", "b", "c", "d", "e")
	opts := Options{Thresholds: types.Thresholds{MaxLookahead: 3}}
	charts, st, err := Segment(stream, types.ChartFormatB, opts)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	require.Len(t, charts[0].Rows, 1)
	assert.Equal(t, "a b c", charts[0].Rows[0].Text)
	assert.True(t, charts[0].Rows[0].Truncated)
	assert.Equal(t, 1, st.Truncated)
}

func TestFormatB_EndOfStreamIsNotTruncation(t *testing.T) {
	stream := texts("Recommendations for X", "sub", "I", "A", "a", "b")
	charts, st, err := Segment(stream, types.ChartFormatB, Options{})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.False(t, charts[0].Rows[0].Truncated)
	assert.Equal(t, 0, st.Truncated)
}

func TestFormatB_MultipleCharts(t *testing.T) {
	stream := texts(
		"Recommendations for A", "sub A", "I", "A", "Do Y",
		"Recommendations for B", "sub B", "IIa", "B-NR", "Do Z (12).",
	)
	charts, st, err := Segment(stream, types.ChartFormatB, Options{Citations: types.CitationNumeric})
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, 2, st.ChartIndex)
	assert.Equal(t, "sub B", charts[1].Subtitle)
	require.Len(t, charts[0].Rows, 1)
	assert.Equal(t, "Do Y", charts[0].Rows[0].Text, "open row ends at the next header")
	require.Len(t, charts[1].Rows, 1)
	assert.Equal(t, "Do Z (12).", charts[1].Rows[0].Text)
}

func TestFormatC_MultipleCharts(t *testing.T) {
	stream := []types.Fragment{
		fontFrag("4.1. Recommendations for X", "5"),
		fontFrag("Synopsis A", "6"),
		fontFrag("CLASS I", "8"),
		fontFrag("LEVEL A", "8"),
		fontFrag("Do Y", "7"),
		fontFrag("4.2. Recommendations for Z", "5"),
		fontFrag("CLASS IIb", "8"),
		fontFrag("C-LD", "8"),
		fontFrag("Do Z (S4-2).", "7"),
	}
	charts, st, err := Segment(stream, types.ChartFormatC, Options{Fonts: cFonts})
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, 2, st.ChartIndex)

	assert.Equal(t, "4.1. Recommendations for X", charts[0].Title)
	assert.Equal(t, "Synopsis A", charts[0].Subtitle)
	require.Len(t, charts[0].Rows, 1)
	assert.Equal(t, "Do Y", charts[0].Rows[0].Text)

	assert.Equal(t, "4.2. Recommendations for Z", charts[1].Title)
	require.Len(t, charts[1].Rows, 1)
	assert.Equal(t, types.EvidenceLevel("C-LD"), charts[1].Rows[0].EvidenceLevel)
	assert.Equal(t, "Do Z (S4-2).", charts[1].Rows[0].Text)
}

func TestFormatC(t *testing.T) {
	stream := []types.Fragment{
		fontFrag("4.2. Recommendations for managing X", "5"),
		fontFrag("Synopsis text", "6"),
		fontFrag("more synopsis", "6"),
		fontFrag("CLASS IIa", "8"),
		fontFrag("LEVEL B-NR", "8"),
		fontFrag("Do Y", "7"),
		fontFrag("(S4-1).", "7"),
		fontFrag("Body text", "9"),
		fontFrag("CLASS I", "8"),
		fontFrag("Do Z (S4-2).", "7"),
		fontFrag("Body", "9"),
	}
	charts, st, err := Segment(stream, types.ChartFormatC, Options{Fonts: cFonts})
	require.NoError(t, err)
	require.Len(t, charts, 1)

	c := charts[0]
	assert.Equal(t, "4.2. Recommendations for managing X", c.Title)
	assert.Equal(t, "Synopsis text more synopsis", c.Subtitle)
	require.Len(t, c.Rows, 1)
	assert.Equal(t, types.RecommendationRow{
		Classification: "IIa",
		EvidenceLevel:  "B-NR",
		Text:           "Do Y (S4-1).",
		Citations:      []string{"S4-1"},
		Position:       3,
	}, c.Rows[0])

	assert.Equal(t, 1, st.Dropped, "class block without an evidence level is dropped")
}

func TestFormatC_TitleExtension(t *testing.T) {
	stream := []types.Fragment{
		fontFrag("4.3.", "5"),
		fontFrag("Statins and", "5"),
		fontFrag("Recommendations", "5"),
		fontFrag("CLASS 2b", "8"),
		fontFrag("Consider Y (S4-1).", "7"),
		fontFrag("C-LD", "8"),
	}
	charts, _, err := Segment(stream, types.ChartFormatC, Options{Fonts: cFonts})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "4.3. Statins and Recommendations", charts[0].Title)
	require.Len(t, charts[0].Rows, 1)
	assert.Equal(t, types.EvidenceLevel("C-LD"), charts[0].Rows[0].EvidenceLevel, "evidence level right after the block")
}

func TestFormatC_RejectedTitle(t *testing.T) {
	stream := []types.Fragment{
		fontFrag("4.3. Background", "5"),
		fontFrag("a", "9"), fontFrag("b", "9"), fontFrag("c", "9"),
		fontFrag("d", "9"), fontFrag("e", "9"), fontFrag("f", "9"),
	}
	charts, st, err := Segment(stream, types.ChartFormatC, Options{Fonts: cFonts})
	require.NoError(t, err)
	assert.Empty(t, charts)
	assert.Equal(t, 1, st.RejectedHeaders)
	assert.Equal(t, 0, st.ChartIndex)
}

func TestMissingEvidenceLevelNeverEmitted(t *testing.T) {
	streams := map[types.ChartFormat][]types.Fragment{
		types.ChartFormatA: texts("Recommendations for X", "COR", "IIa", "Do Y (S4-1).", "IIb", "", "Do Z (S4-2)."),
		types.ChartFormatB: texts("Recommendations for X", "sub", "IIa", "Do Y (S4-1).", "IIb", "B-X", "Do Z (S4-2)."),
		types.ChartFormatC: {
			fontFrag("1.1. Recommendations for X", "5"),
			fontFrag("CLASS IIa", "8"),
			fontFrag("Do Y (S4-1).", "7"),
			fontFrag("other", "9"),
			fontFrag("CLASS IIb", "8"),
			fontFrag("LEVEL Q", "7"),
			fontFrag("Do Z", "7"),
		},
	}
	for format, stream := range streams {
		t.Run(string(format), func(t *testing.T) {
			charts, _, err := Segment(stream, format, Options{Fonts: cFonts})
			require.NoError(t, err)
			for _, c := range charts {
				for _, row := range c.Rows {
					assert.NotEmpty(t, row.Classification)
					assert.NotEmpty(t, row.EvidenceLevel)
					assert.NotEmpty(t, row.Text)
				}
			}
			assert.Empty(t, charts, "charts without valid rows are discarded")
		})
	}
}

func TestClassFilter(t *testing.T) {
	stream := texts("Recommendations for X", "sub", "I", "A", "Do W (S1-1).", "IIa", "B-R", "Do Y (S1-2).")
	charts, st, err := Segment(stream, types.ChartFormatB, Options{ClassFilter: NewClassFilter([]string{"IIa", "IIb"})})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	require.Len(t, charts[0].Rows, 1)
	assert.Equal(t, types.Classification("IIa"), charts[0].Rows[0].Classification)
	assert.Equal(t, 1, st.Filtered)
}

func TestNewClassFilter(t *testing.T) {
	assert.Nil(t, NewClassFilter(nil))
	assert.True(t, NewClassFilter(nil).Allows("III"))

	f := NewClassFilter([]string{"IIa", "bogus"})
	assert.True(t, f.Allows("IIa"))
	assert.False(t, f.Allows("I"))
	assert.Len(t, f, 1)
}

func TestEnumeratorDropped(t *testing.T) {
	stream := texts("Recommendations for X", "sub", "I", "A", "1.", "Do Y (S1-1).")
	charts, _, err := Segment(stream, types.ChartFormatB, Options{})
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "Do Y (S1-1).", charts[0].Rows[0].Text)
}

func TestMarkers(t *testing.T) {
	for _, c := range Classifications {
		_, ok := ParseClassification(string(c))
		assert.True(t, ok, c)
	}
	_, ok := ParseClassification("IV")
	assert.False(t, ok)

	l, ok := ParseEvidenceLevel("B–NR")
	assert.True(t, ok)
	assert.Equal(t, types.EvidenceLevel("B-NR"), l)

	l, ok = parseLevelFragment("LEVEL C-EO")
	assert.True(t, ok)
	assert.Equal(t, types.EvidenceLevel("C-EO"), l)
	_, ok = parseLevelFragment("LEVEL")
	assert.False(t, ok)
}

func TestTerminationPolicies(t *testing.T) {
	frag := func(text, font string) types.Fragment { return types.Fragment{Text: text, FontID: font} }

	a := FragmentCitationPolicy()
	assert.Equal(t, IncludeAndStop, a.Decide(frag("adults (S4-1).", ""), ""))
	assert.Equal(t, IncludeAndStop, a.Decide(frag("S4.2-1, S4.2-3", ""), ""))
	assert.Equal(t, Continue, a.Decide(frag("continues here", ""), ""))

	b := ClosingParenPolicy()
	assert.Equal(t, IncludeAndStop, b.Decide(frag(".", ""), "Do Y (12)."))
	assert.Equal(t, Continue, b.Decide(frag("(S4-1)", ""), "Do Y (S4-1)"))

	c := FontRunPolicy("7")
	assert.Equal(t, Continue, c.Decide(frag("x", "7"), ""))
	assert.Equal(t, ExcludeAndStop, c.Decide(frag("x", "8"), ""))

	first := FirstOf(b, c)
	assert.Equal(t, ExcludeAndStop, first.Decide(frag("x", "8"), "no stop"))
	assert.Equal(t, IncludeAndStop, first.Decide(frag("x", "8"), "stop)."))
	assert.Equal(t, "exclude-and-stop", ExcludeAndStop.String())
}

func TestGuardRecovers(t *testing.T) {
	r := newRun(Options{}.withDefaults(), texts("IIa", "B-NR"))
	next := r.guard(0, func() int { panic("boom") })
	assert.Equal(t, 1, next)
	assert.Equal(t, 1, r.st.Dropped)
	require.Len(t, r.st.Diagnostics.Errors(), 1)
	assert.Contains(t, r.st.Diagnostics.Errors()[0].Error(), "boom")
}

func TestFor(t *testing.T) {
	_, err := For("Z", Options{})
	assert.Error(t, err)

	_, err = For(types.ChartFormatC, Options{})
	assert.Error(t, err, "format C needs font selectors")

	s, err := For(types.ChartFormatC, Options{Fonts: cFonts})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestZeroRowChartsDiscarded(t *testing.T) {
	charts, st, err := Segment(texts("Recommendations for X", "COR", "body"), types.ChartFormatA, Options{})
	require.NoError(t, err)
	assert.Empty(t, charts)
	assert.Equal(t, 1, st.ChartIndex)
}
