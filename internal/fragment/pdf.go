// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fragment

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// PDFOptions controls direct PDF glyph-run extraction.
type PDFOptions struct {
	// Scale multiplies PDF user-space coordinates so positions line up with
	// pdftohtml output, which renders at 1.5x by default (default 1.5).
	Scale float64

	// WordGap is the gap, as a fraction of font size, above which a space
	// is inserted between glyphs (default 0.15).
	WordGap float64

	// RunGap is the gap, as a fraction of font size, above which a new
	// fragment starts on the same line (default 1.5).
	RunGap float64
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.Scale <= 0 {
		o.Scale = 1.5
	}
	if o.WordGap <= 0 {
		o.WordGap = 0.15
	}
	if o.RunGap <= 0 {
		o.RunGap = 1.5
	}
	return o
}

const defaultPageHeight = 792.0

// FromPDF extracts fragments directly from a PDF file. Glyphs sharing a
// baseline and font are merged into runs; a run ends at a font change or a
// horizontal gap wider than RunGap. Font IDs are assigned per distinct
// (font name, size) pair in order of first appearance.
func FromPDF(path string, opts PDFOptions) (*Document, error) {
	opts = opts.withDefaults()

	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	doc := &Document{Fonts: map[string]types.FontSpec{}}
	fonts := newFontRegistry(doc.Fonts)

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		height := defaultPageHeight
		if box := page.V.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			height = box.Index(3).Float64()
		}
		glyphs := make([]glyph, 0, len(page.Content().Text))
		for _, t := range page.Content().Text {
			if t.S == "" {
				continue
			}
			glyphs = append(glyphs, glyph{
				font: t.Font, size: t.FontSize,
				x: t.X, y: t.Y, w: t.W, s: t.S,
			})
		}
		for _, run := range groupRuns(glyphs, opts) {
			doc.Fragments = append(doc.Fragments, run.fragment(i, height, opts.Scale, fonts))
		}
	}
	return doc, nil
}

type glyph struct {
	font string
	size float64
	x, y float64
	w    float64
	s    string
}

type run struct {
	font  string
	size  float64
	x, y  float64
	right float64
	text  strings.Builder
}

// groupRuns sorts glyphs top to bottom then left to right and merges them
// into runs.
func groupRuns(glyphs []glyph, opts PDFOptions) []*run {
	sort.SliceStable(glyphs, func(a, b int) bool {
		ya, yb := math.Round(glyphs[a].y), math.Round(glyphs[b].y)
		if ya != yb {
			return ya > yb
		}
		return glyphs[a].x < glyphs[b].x
	})

	var runs []*run
	var cur *run
	for _, g := range glyphs {
		if cur != nil && cur.font == g.font && math.Abs(cur.y-g.y) < 1 {
			gap := g.x - cur.right
			if gap <= opts.RunGap*g.size {
				if gap > opts.WordGap*g.size {
					cur.text.WriteByte(' ')
				}
				cur.text.WriteString(g.s)
				cur.right = g.x + g.w
				continue
			}
		}
		cur = &run{font: g.font, size: g.size, x: g.x, y: g.y, right: g.x + g.w}
		cur.text.WriteString(g.s)
		runs = append(runs, cur)
	}
	return runs
}

func (r *run) fragment(page int, height, scale float64, fonts *fontRegistry) types.Fragment {
	text := Normalize(r.text.String())
	frag := types.Fragment{
		Text:   text,
		Left:   int(math.Round(r.x * scale)),
		Width:  int(math.Round((r.right - r.x) * scale)),
		Top:    int(math.Round((height - r.y - r.size) * scale)),
		Page:   page,
		FontID: fonts.id(r.font, r.size),
	}
	lower := strings.ToLower(r.font)
	if strings.Contains(lower, "bold") {
		frag.Bold = true
		frag.BoldSpans = []string{text}
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		frag.Italic = true
	}
	return frag
}

type fontKey struct {
	name string
	size int
}

type fontRegistry struct {
	ids   map[fontKey]string
	specs map[string]types.FontSpec
}

func newFontRegistry(specs map[string]types.FontSpec) *fontRegistry {
	return &fontRegistry{ids: map[fontKey]string{}, specs: specs}
}

func (r *fontRegistry) id(name string, size float64) string {
	k := fontKey{name: name, size: int(math.Round(size))}
	if id, ok := r.ids[k]; ok {
		return id
	}
	id := strconv.Itoa(len(r.ids))
	r.ids[k] = id
	r.specs[id] = types.FontSpec{ID: id, Size: k.size, Family: name}
	return id
}
