// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"regexp"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// headerA matches a format A chart header at the start of a fragment.
var headerA = regexp.MustCompile(`^[Rr]ecommendations? for`)

// subtitleSentinels end subtitle absorption: the chart's column headings.
var subtitleSentinels = map[string]bool{"COR": true, "LOE": true, "RECOMMENDATIONS": true}

// formatA reads documents where a section title fragment is followed by a
// "Recommendations for ..." fragment and the chart's column headings.
type formatA struct {
	opts Options
}

func (s *formatA) Segment(frags []types.Fragment) ([]types.Chart, State) {
	r := newRun(s.opts, frags)
	policy := FragmentCitationPolicy()

	r.titledHeaders = true

	// jumped is set when i was reached by skipping fragments, so frags[i]
	// has not yet been examined as the header of a window.
	i, jumped := 0, true
	for i < len(frags) {
		r.st.Position = i

		// A header reached directly has no title fragment before it.
		h, titled := i+1, true
		if jumped && headerA.MatchString(frags[i].Text) {
			h, titled = i, false
		}
		jumped = false
		if h < len(frags) && headerA.MatchString(frags[h].Text) {
			if next, ok := s.header(r, h, titled); ok {
				i, jumped = next, true
				continue
			}
			r.st.RejectedHeaders++
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
			jumped = true
			continue
		}
		i++
	}
	return r.finish()
}

// header confirms the header at h. When titled, frags[h-1] is the chart
// title and the subtitle opens with the header text; otherwise the header
// is the title. Up to SubtitleLookahead following fragments extend the
// subtitle, and a column heading sentinel or a row start must appear within
// that window or the header is rejected. It returns the index to resume at.
func (s *formatA) header(r *run, h int, titled bool) (int, bool) {
	title, subtitle := r.frags[h].Text, ""
	if titled {
		title, subtitle = r.frags[h-1].Text, r.frags[h].Text
	}

	limit := min(h+1+s.opts.Thresholds.SubtitleLookahead, len(r.frags))
	for j := h + 1; j < limit; j++ {
		text := r.frags[j].Text
		if subtitleSentinels[text] {
			r.openChart(title, subtitle, h)
			return j + 1, true
		}
		if _, _, ok := r.rowStart(j); ok {
			r.openChart(title, subtitle, h)
			return j, true
		}
		subtitle = joinText(subtitle, text)
	}
	return 0, false
}
