// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"regexp"
	"slices"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

var (
	classBlock   = regexp.MustCompile(`^CLASS (.{1,4}|3: (?:No Benefit|Harm))$`)
	sectionTitle = regexp.MustCompile(`^\d*\.[\d.]+.*`)
)

// formatC reads documents laid out with distinct fonts: a numbered section
// title in a title font, subtitle runs in a subtitle font, and "CLASS x"
// blocks whose recommendation text is set in a class font.
type formatC struct {
	opts Options
}

func (s *formatC) Segment(frags []types.Fragment) ([]types.Chart, State) {
	r := newRun(s.opts, frags)
	fonts := s.opts.Fonts

	var subtitle string
	i := 0
	for i < len(frags) {
		r.st.Position = i
		f := frags[i]

		if slices.Contains(fonts.Title, f.FontID) && sectionTitle.MatchString(f.Text) {
			next, ok := s.title(r, i)
			if !ok {
				r.st.RejectedHeaders++
			}
			subtitle = ""
			i = next
			continue
		}

		if r.current() != nil && fonts.Subtitle != "" && f.FontID == fonts.Subtitle {
			subtitle = joinText(subtitle, f.Text)
			i++
			continue
		}
		if subtitle != "" {
			c := r.current()
			c.Subtitle = joinText(c.Subtitle, subtitle)
			subtitle = ""
		}

		if m := classBlock.FindStringSubmatch(f.Text); m != nil {
			pos := i
			i = r.guard(pos, func() int {
				return s.block(r, pos, m[1])
			})
			continue
		}
		i++
	}
	if subtitle != "" && r.current() != nil {
		c := r.current()
		c.Subtitle = joinText(c.Subtitle, subtitle)
	}
	return r.finish()
}

// title reads a section title starting at i, extending it with up to
// SubtitleLookahead fragments until it mentions "recommendation". It
// returns the index after the consumed fragments.
func (s *formatC) title(r *run, i int) (int, bool) {
	title := r.frags[i].Text
	j := i
	for k := 0; ; k++ {
		if strings.Contains(strings.ToLower(title), "recommendation") {
			r.openChart(title, "", i)
			return j + 1, true
		}
		if k >= s.opts.Thresholds.SubtitleLookahead || j+1 >= len(r.frags) {
			return j + 1, false
		}
		j++
		title = joinText(title, r.frags[j].Text)
	}
}

// block reads the class block opened at pos. Text is the run of class font
// fragments after the marker; the evidence level is a bare or "LEVEL x"
// fragment inside the run or immediately after it.
func (s *formatC) block(r *run, pos int, marker string) int {
	cor, ok := ParseClassification(marker)
	if !ok {
		r.drop(&types.MalformedRowError{Position: pos, Text: r.frags[pos].Text, Reason: "unknown classification " + marker})
		return pos + 1
	}

	policy := FontRunPolicy(s.opts.Fonts.Class)
	var (
		loe       types.EvidenceLevel
		text      string
		truncated bool
	)
	j := pos + 1
	limit := min(j+s.opts.Thresholds.MaxLookahead, len(r.frags))
scan:
	for ; j < limit; j++ {
		f := r.frags[j]
		if loe == "" {
			if l, ok := parseLevelFragment(f.Text); ok {
				loe = l
				continue
			}
		}
		if classBlock.MatchString(f.Text) {
			break
		}
		candidate := joinText(text, f.Text)
		switch policy.Decide(f, candidate) {
		case IncludeAndStop:
			text = candidate
			j++
			break scan
		case ExcludeAndStop:
			break scan
		}
		text = candidate
	}
	if j == limit && limit < len(r.frags) {
		truncated = true
	}
	if loe == "" && j < len(r.frags) {
		if l, ok := parseLevelFragment(r.frags[j].Text); ok {
			loe = l
			j++
		}
	}

	r.emit(types.RecommendationRow{
		Classification: cor,
		EvidenceLevel:  loe,
		Text:           text,
		Position:       pos,
		Truncated:      truncated,
	})
	return max(j, pos+1)
}
