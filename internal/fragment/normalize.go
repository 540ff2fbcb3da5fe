// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fragment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalisation, drops control characters, collapses
// runs of whitespace to a single space, and trims the result. NFKC folds the
// ligatures and non-breaking spaces PDF converters emit; dashes are kept.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
