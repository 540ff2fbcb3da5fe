// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// MalformedRowError reports a recommendation row lacking a classification,
// evidence level, or text. The row is dropped.
type MalformedRowError struct {
	Position int
	Text     string
	Reason   string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at fragment %d: %s (%q)", e.Position, e.Reason, clip(e.Text))
}

// MissingHeaderError reports an evidence table with no bold header cluster.
// The table falls back to a single "Not available" column.
type MissingHeaderError struct {
	Position int
	Table    string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("no column header after %q at fragment %d", clip(e.Table), e.Position)
}

// UnresolvedCitationError reports a citation key absent from the reference
// table. The citation is omitted from the row.
type UnresolvedCitationError struct {
	Key      string
	Position int
}

func (e *UnresolvedCitationError) Error() string {
	return fmt.Sprintf("citation %s at fragment %d not found in reference list", e.Key, e.Position)
}

// SchemaMismatchError reports an evidence row whose cell count matches no
// known fixed-arity schema. The row is dropped.
type SchemaMismatchError struct {
	Position int
	Cells    int
	Text     string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("row at fragment %d has %d cells, no schema matches (%q)", e.Position, e.Cells, clip(e.Text))
}

func clip(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Diagnostics collects the recoverable failures of one document parse.
type Diagnostics struct {
	MalformedRows       int `json:"malformed_rows" yaml:"malformed_rows"`
	MissingHeaders      int `json:"missing_headers" yaml:"missing_headers"`
	UnresolvedCitations int `json:"unresolved_citations" yaml:"unresolved_citations"`
	SchemaMismatches    int `json:"schema_mismatches" yaml:"schema_mismatches"`

	// Messages holds the error text of each recorded failure.
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`

	errs []error
}

// Record counts err by kind and keeps it. Errors outside the taxonomy are
// kept but not counted.
func (d *Diagnostics) Record(err error) {
	if err == nil {
		return
	}
	var (
		mr *MalformedRowError
		mh *MissingHeaderError
		uc *UnresolvedCitationError
		sm *SchemaMismatchError
	)
	switch {
	case errors.As(err, &mr):
		d.MalformedRows++
	case errors.As(err, &mh):
		d.MissingHeaders++
	case errors.As(err, &uc):
		d.UnresolvedCitations++
	case errors.As(err, &sm):
		d.SchemaMismatches++
	}
	d.errs = append(d.errs, err)
	d.Messages = append(d.Messages, err.Error())
}

// Merge adds the counts and errors of other to d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.MalformedRows += other.MalformedRows
	d.MissingHeaders += other.MissingHeaders
	d.UnresolvedCitations += other.UnresolvedCitations
	d.SchemaMismatches += other.SchemaMismatches
	d.errs = append(d.errs, other.errs...)
	d.Messages = append(d.Messages, other.Messages...)
}

// Errors returns the recorded errors in order.
func (d *Diagnostics) Errors() []error {
	return d.errs
}

// Total returns the number of counted failures.
func (d Diagnostics) Total() int {
	return d.MalformedRows + d.MissingHeaders + d.UnresolvedCitations + d.SchemaMismatches
}
