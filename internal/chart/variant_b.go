// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// formatB reads documents whose chart header is any fragment containing
// "recommendation(s) for", followed by a one-fragment subtitle.
type formatB struct {
	opts Options
}

func (s *formatB) Segment(frags []types.Fragment) ([]types.Chart, State) {
	r := newRun(s.opts, frags)
	policy := ClosingParenPolicy()

	i := 0
	for i < len(frags) {
		r.st.Position = i
		f := frags[i]

		if containsHeader(f.Text) {
			next := i + 1
			var subtitle string
			if next < len(frags) {
				if _, _, ok := r.rowStart(next); !ok && !containsHeader(frags[next].Text) {
					subtitle = frags[next].Text
					next++
				}
			}
			r.openChart(f.Text, subtitle, i)
			i = next
			continue
		}

		if cor, loe, ok := r.rowStart(i); ok {
			pos := i
			i = r.guard(pos, func() int {
				text, next, truncated := r.accumulate(pos+2, policy)
				r.emit(types.RecommendationRow{
					Classification: cor,
					EvidenceLevel:  loe,
					Text:           text,
					Position:       pos,
					Truncated:      truncated,
				})
				return next
			})
			continue
		}
		i++
	}
	return r.finish()
}

func containsHeader(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "recommendations for") || strings.Contains(lower, "recommendation for")
}
