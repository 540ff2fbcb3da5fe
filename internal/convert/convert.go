// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns guideline PDFs into pdftohtml -xml output with
// pluggable backends (a local binary or a container image).
// Implements: PDF-to-XML conversion; docs/ARCHITECTURE § Conversion.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Converter writes the pdftohtml -xml conversion of pdfPath to xmlPath.
type Converter interface {
	Convert(ctx context.Context, pdfPath, xmlPath string) error
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of PDFs processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any PDF failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// XMLPath returns the conversion output path for pdfPath: the same
// directory and base name with a .xml extension.
func XMLPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".xml"
}

// ConvertBatch converts each PDF next to itself, printing one status line
// per file to w and a summary at the end. PDFs whose XML exists are skipped
// unless force is set. Cancelling ctx stops the remaining files.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, force bool, w io.Writer) BatchResult {
	var result BatchResult
	for _, pdf := range pdfPaths {
		if ctx.Err() != nil {
			break
		}
		out := XMLPath(pdf)
		if _, err := os.Stat(out); err == nil && !force {
			fmt.Fprintf(w, "skipped:   %s (already exists)\n", filepath.Base(out))
			result.Skipped++
			continue
		}
		if err := c.Convert(ctx, pdf, out); err != nil {
			fmt.Fprintf(w, "failed:    %s (%v)\n", filepath.Base(pdf), err)
			result.Failed++
			continue
		}
		fmt.Fprintf(w, "converted: %s\n", filepath.Base(out))
		result.Converted++
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// FindPDFs expands args into PDF paths. A file is taken as is; a directory
// contributes its own PDFs and those of its immediate subdirectories, the
// documents/<name>/*.pdf layout read by detect. Results are sorted.
func FindPDFs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		for _, pattern := range []string{"*.pdf", "*/*.pdf", "*.PDF", "*/*.PDF"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", arg, err)
			}
			out = append(out, matches...)
		}
	}
	sort.Strings(out)
	return out, nil
}
