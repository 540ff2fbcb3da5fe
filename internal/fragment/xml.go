// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fragment

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// DecodeXML reads pdftohtml -xml output and returns its fragment stream.
// Each <text> element becomes one fragment; nested <b> and <i> spans set
// the bold and italic flags and bold span texts are kept separately.
//
// The HTML tokenizer is used instead of a strict XML decoder because
// pdftohtml output regularly contains unescaped ampersands and stray markup
// inside text elements.
func DecodeXML(r io.Reader) (*Document, error) {
	z := html.NewTokenizer(r)
	doc := &Document{Fonts: map[string]types.FontSpec{}}

	var (
		page      int
		inText    bool
		boldDepth int
		cur       types.Fragment
		text      strings.Builder
		boldSpan  strings.Builder
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if inText {
					doc.Fragments = append(doc.Fragments, finish(cur, text.String()))
				}
				return doc, nil
			}
			return nil, fmt.Errorf("tokenizing converter output: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "page":
				page = atoi(attr(tok, "number"))
			case "fontspec":
				spec := types.FontSpec{
					ID:     attr(tok, "id"),
					Size:   atoi(attr(tok, "size")),
					Family: attr(tok, "family"),
					Color:  attr(tok, "color"),
				}
				doc.Fonts[spec.ID] = spec
			case "text":
				if inText {
					doc.Fragments = append(doc.Fragments, finish(cur, text.String()))
				}
				inText = true
				boldDepth = 0
				text.Reset()
				cur = types.Fragment{
					Left:   atoi(attr(tok, "left")),
					Width:  atoi(attr(tok, "width")),
					Top:    atoi(attr(tok, "top")),
					Page:   page,
					FontID: attr(tok, "font"),
				}
				if tt == html.SelfClosingTagToken {
					doc.Fragments = append(doc.Fragments, finish(cur, ""))
					inText = false
				}
			case "b":
				if inText && tt == html.StartTagToken {
					cur.Bold = true
					if boldDepth == 0 {
						boldSpan.Reset()
					}
					boldDepth++
				}
			case "i":
				if inText {
					cur.Italic = true
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "b":
				if inText && boldDepth > 0 {
					boldDepth--
					if boldDepth == 0 {
						cur.BoldSpans = append(cur.BoldSpans, Normalize(boldSpan.String()))
					}
				}
			case "text":
				if inText {
					if boldDepth > 0 {
						cur.BoldSpans = append(cur.BoldSpans, Normalize(boldSpan.String()))
					}
					doc.Fragments = append(doc.Fragments, finish(cur, text.String()))
					inText = false
					boldDepth = 0
				}
			}

		case html.TextToken:
			if !inText {
				continue
			}
			data := z.Token().Data
			text.WriteString(data)
			if boldDepth > 0 {
				boldSpan.WriteString(data)
			}
		}
	}
}

func finish(f types.Fragment, raw string) types.Fragment {
	f.Text = Normalize(raw)
	return f
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
