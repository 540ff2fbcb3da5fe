// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chart

import (
	"regexp"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Decision is a row termination verdict for one candidate fragment.
type Decision int

const (
	// Continue appends the fragment and keeps accumulating.
	Continue Decision = iota
	// IncludeAndStop appends the fragment and closes the row.
	IncludeAndStop
	// ExcludeAndStop closes the row without the fragment, which is left
	// for the segmenter to examine next.
	ExcludeAndStop
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case IncludeAndStop:
		return "include-and-stop"
	case ExcludeAndStop:
		return "exclude-and-stop"
	}
	return "unknown"
}

// RowTerminationPolicy decides where recommendation text accumulation ends.
// Decide sees the candidate fragment and the accumulated text as it would
// read with that fragment appended.
type RowTerminationPolicy interface {
	Decide(f types.Fragment, text string) Decision
}

// PolicyFunc adapts a function to RowTerminationPolicy.
type PolicyFunc func(f types.Fragment, text string) Decision

// Decide calls p.
func (p PolicyFunc) Decide(f types.Fragment, text string) Decision {
	return p(f, text)
}

// FirstOf returns a policy that reports the first non-Continue decision
// of policies, in order.
func FirstOf(policies ...RowTerminationPolicy) RowTerminationPolicy {
	return PolicyFunc(func(f types.Fragment, text string) Decision {
		for _, p := range policies {
			if d := p.Decide(f, text); d != Continue {
				return d
			}
		}
		return Continue
	})
}

var trailingCitation = regexp.MustCompile(`.*?([S\d,\s.–-]+\d)$`)

// FragmentCitationPolicy stops after a fragment that ends with ")." or ends
// in a bare citation group such as "S4.2-1, S4.2-3". Used by format A.
func FragmentCitationPolicy() RowTerminationPolicy {
	return PolicyFunc(func(f types.Fragment, _ string) Decision {
		if strings.HasSuffix(f.Text, ").") || trailingCitation.MatchString(f.Text) {
			return IncludeAndStop
		}
		return Continue
	})
}

// ClosingParenPolicy stops once the accumulated text ends with ")." and at
// no other point. Used by format B.
func ClosingParenPolicy() RowTerminationPolicy {
	return PolicyFunc(func(_ types.Fragment, text string) Decision {
		if strings.HasSuffix(text, ").") {
			return IncludeAndStop
		}
		return Continue
	})
}

// FontRunPolicy keeps fragments set in font and stops, excluding the
// fragment, at the first font change. Used by format C class blocks.
func FontRunPolicy(font string) RowTerminationPolicy {
	return PolicyFunc(func(f types.Fragment, _ string) Decision {
		if f.FontID == font {
			return Continue
		}
		return ExcludeAndStop
	})
}

// joinText appends next to text. A lone period attaches without a space.
func joinText(text, next string) string {
	switch {
	case next == "":
		return text
	case text == "":
		return next
	case next == ".":
		return text + next
	}
	return text + " " + next
}
