// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

const tableMarker = "Data Supplement"

var (
	referenceOnly = regexp.MustCompile(`^[(),\d\s]+$`)
	referenceNum  = regexp.MustCompile(`\d+`)
)

// Options configures reconstruction of one data supplement.
type Options struct {
	Version    types.SupplementVersion
	Thresholds types.Thresholds

	// Logger receives one record per missing header and dropped row. Nil discards.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	o.Thresholds = o.Thresholds.WithDefaults()
	if !o.Version.Valid() {
		o.Version = types.SupplementV1
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// openRow accumulates the fragments of one logical row.
type openRow struct {
	position   int
	data       []cellFragment
	titles     []string
	references []string
}

func (r *openRow) add(text string, left int, titles []string) {
	r.data = append(r.data, cellFragment{text: text, left: left})
	r.addTitles(titles)
}

func (r *openRow) addTitles(titles []string) {
	for _, t := range titles {
		if !slices.Contains(r.titles, t) {
			r.titles = append(r.titles, t)
		}
	}
}

// reconstructor is the single-pass state of one supplement.
type reconstructor struct {
	opts   Options
	tables []types.EvidenceTable
	row    *openRow
	pre    int
	refs   bool
	diag   types.Diagnostics
}

// Reconstruct splits frags into evidence tables, one per "Data Supplement"
// marker. Fragments before the first marker are ignored.
func Reconstruct(frags []types.Fragment, opts Options) ([]types.EvidenceTable, types.Diagnostics) {
	opts = opts.withDefaults()
	r := &reconstructor{opts: opts}
	th := opts.Thresholds

	for i := 0; i < len(frags); i++ {
		f := frags[i]
		titles := rowTitles(f)
		text := strings.TrimSpace(strings.ReplaceAll(f.Text, "–", "-"))

		if text == "" {
			if r.row != nil {
				r.row.addTitles(titles)
			}
			continue
		}

		if f.Bold && strings.HasPrefix(text, tableMarker) {
			i = r.openTable(frags, i) - 1
			continue
		}
		if len(r.tables) == 0 {
			continue
		}

		switch {
		case f.Left < th.RowStartMax:
			if opts.Version == types.SupplementV3 {
				if n := strings.Trim(text, "() ,"); isDigits(n) {
					if r.row != nil {
						r.row.references = append(r.row.references, n)
					}
					continue
				}
				r.refs = true
			}
			n := utf8.RuneCountInString(text)
			if n <= th.MinStarterLen || n >= th.MaxStarterLen {
				// Noise in the starter column; the previous left is kept.
				continue
			}
			if r.row != nil && f.Left-th.ContinuationWindow < r.pre && r.pre < f.Left+th.ContinuationWindow {
				r.row.add(text, f.Left, titles)
			} else {
				r.closeRow()
				r.row = &openRow{position: i}
				r.row.add(text, f.Left, titles)
			}

		case f.Left > th.LeftUp:
			if opts.Version == types.SupplementV3 && r.refs && r.reference(text) {
				break
			}
			if utf8.RuneCountInString(text) < th.MaxContinuationLen && r.row != nil {
				r.row.add(text, f.Left, titles)
			}
		}
		r.pre = f.Left
	}
	r.closeRow()
	return r.tables, r.diag
}

// openTable starts the table whose marker is frags[i], consuming the bold
// header fragments after it. It returns the index of the first fragment
// after the header.
func (r *reconstructor) openTable(frags []types.Fragment, i int) int {
	r.closeRow()

	var headers []types.ColumnSpec
	j := i + 1
	for ; j < len(frags) && frags[j].Bold; j++ {
		headers = append(headers, types.ColumnSpec{
			Name:  frags[j].BoldText(),
			Left:  frags[j].Left,
			Width: frags[j].Width,
		})
	}

	table := types.EvidenceTable{
		Title:   strings.TrimSpace(frags[i].Text),
		Columns: ClusterColumns(headers, r.opts.Thresholds.RowFieldGap),
	}
	if len(table.Columns) == 0 {
		err := &types.MissingHeaderError{Position: i, Table: table.Title}
		r.diag.Record(err)
		r.opts.Logger.Warn("missing column header", "position", i, "table", table.Title)
		table.Columns = []types.ColumnSpec{{Name: types.FallbackColumnName}}
	}
	r.tables = append(r.tables, table)
	return j
}

// closeRow splits the open row into cells and appends it to the current
// table. Rows without text are discarded.
func (r *reconstructor) closeRow() {
	row := r.row
	r.row = nil
	if row == nil || len(r.tables) == 0 || len(row.data) == 0 {
		return
	}

	var cells []string
	for _, c := range splitFragments(row.data, r.opts.Thresholds.CellTolerance) {
		if strings.TrimSpace(c) != "" {
			cells = append(cells, c)
		}
	}
	t := &r.tables[len(r.tables)-1]
	t.Rows = append(t.Rows, types.EvidenceRow{
		Cells:      cells,
		Titles:     row.titles,
		References: row.references,
		Position:   row.position,
	})
}

// reference collects reference numbers from a version 3 continuation
// fragment. The reference group ends at a closing parenthesis; text that is
// not a reference also ends it and is left for the caller to add as data.
func (r *reconstructor) reference(text string) bool {
	if !referenceOnly.MatchString(text) {
		r.refs = false
		return false
	}
	if strings.HasSuffix(text, ")") {
		r.refs = false
	}
	if r.row != nil {
		r.row.references = append(r.row.references, referenceNum.FindAllString(text, -1)...)
	}
	return true
}

// rowTitles returns the bold run-in headings of f, trimmed of spaces and
// colons.
func rowTitles(f types.Fragment) []string {
	var out []string
	for _, s := range f.BoldSpans {
		if t := strings.Trim(s, " :"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
