// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fragment produces the positioned text fragment stream consumed by
// chart segmentation and column reconstruction.
// Implements: FragmentStream (pdftohtml -xml decoding, PDF glyph runs);
//
//	docs/ARCHITECTURE § Fragment Stream.
package fragment

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Document is the fully materialised fragment stream of one document. It
// is read-only once built and may be iterated any number of times.
type Document struct {
	// Fonts maps fontspec IDs to their declarations.
	Fonts map[string]types.FontSpec

	// Fragments holds the fragments in reading order.
	Fragments []types.Fragment
}

// NewDocument wraps fragments in a Document with no font declarations.
func NewDocument(frags []types.Fragment) *Document {
	return &Document{Fonts: map[string]types.FontSpec{}, Fragments: frags}
}

// Len returns the number of fragments.
func (d *Document) Len() int {
	return len(d.Fragments)
}

// All yields each fragment with its stream position.
func (d *Document) All() iter.Seq2[int, types.Fragment] {
	return d.From(0)
}

// From yields fragments starting at position start.
func (d *Document) From(start int) iter.Seq2[int, types.Fragment] {
	return func(yield func(int, types.Fragment) bool) {
		for i := max(start, 0); i < len(d.Fragments); i++ {
			if !yield(i, d.Fragments[i]) {
				return
			}
		}
	}
}

// Texts returns the text of every fragment in order.
func (d *Document) Texts() []string {
	out := make([]string, len(d.Fragments))
	for i, f := range d.Fragments {
		out[i] = f.Text
	}
	return out
}

// Load reads a fragment stream from path, choosing the decoder by file
// extension: .xml for pdftohtml -xml output, .pdf for direct glyph-run
// extraction.
func Load(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		doc, err := DecodeXML(f)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return doc, nil
	case ".pdf":
		doc, err := FromPDF(path, PDFOptions{})
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported fragment source %s: want .xml or .pdf", path)
	}
}
