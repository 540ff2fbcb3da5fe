// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders extracted recommendation charts as a Markdown
// document and as HTML.
// Implements: chart report (Markdown with GFM tables, HTML via goldmark);
//
//	docs/ARCHITECTURE § Report.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Markdown renders charts as one section per chart, each holding a table of
// classification, evidence level, text and citations. Unresolved citation
// keys are marked when refs is non-nil.
func Markdown(name string, charts []types.Chart, refs *types.ReferenceTable) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", escape(name))

	rows := 0
	for _, c := range charts {
		rows += len(c.Rows)
	}
	fmt.Fprintf(&b, "%d charts, %d recommendations.\n", len(charts), rows)

	for _, c := range charts {
		title := c.Title
		if title == "" {
			title = "Untitled chart"
		}
		fmt.Fprintf(&b, "\n## %s\n\n", escape(title))
		if c.Subtitle != "" {
			fmt.Fprintf(&b, "*%s*\n\n", escape(c.Subtitle))
		}
		b.WriteString("| COR | LOE | Recommendation | Citations |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, r := range c.Rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escape(string(r.Classification)),
				escape(string(r.EvidenceLevel)),
				escape(r.Text),
				escape(citations(r.Citations, refs)),
			)
		}
	}
	return b.Bytes()
}

func citations(keys []string, refs *types.ReferenceTable) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k
		if refs != nil {
			if _, ok := refs.Lookup(k); !ok {
				out[i] = k + " (unresolved)"
			}
		}
	}
	return strings.Join(out, ", ")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
)

func escape(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return markdownEscaper.Replace(s)
}

// HTML renders the Markdown report as a standalone HTML page.
func HTML(name string, charts []types.Chart, refs *types.ReferenceTable) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(Markdown(name, charts, refs), &body); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(name))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
