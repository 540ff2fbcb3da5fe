// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"github.com/pdiddy/guideline-engine/internal/citation"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Result is the outcome of parsing one data supplement.
type Result struct {
	Tables  []types.EvidenceTable  `json:"tables"`
	Records []types.EvidenceRecord `json:"records"`

	// References is the supplement's own numbered reference list, read for
	// version 3 supplements only.
	References *types.ReferenceTable `json:"references,omitempty"`

	Diagnostics types.Diagnostics `json:"diagnostics"`
}

// Parse reconstructs the evidence tables of a data supplement and maps
// every row onto named fields. Rows whose cell count matches no schema are
// dropped and reported.
func Parse(frags []types.Fragment, opts Options) Result {
	opts = opts.withDefaults()
	tables, diag := Reconstruct(frags, opts)
	res := Result{Tables: tables, Diagnostics: diag}

	if opts.Version == types.SupplementV3 {
		res.References = citation.ExtractNumbered(frags)
	}

	for _, t := range tables {
		for _, row := range t.Rows {
			if len(row.Cells) == 0 {
				continue
			}
			fields, confidence, err := MapRow(t, row, opts.Version)
			if err != nil {
				res.Diagnostics.Record(err)
				opts.Logger.Warn("dropped evidence row",
					"position", row.Position,
					"cells", len(row.Cells),
					"table", t.Title,
				)
				continue
			}
			rec, missing := BuildRecord(t, row, fields, confidence, opts.Version, res.References)
			for _, key := range missing {
				res.Diagnostics.Record(&types.UnresolvedCitationError{Key: key, Position: row.Position})
				opts.Logger.Warn("unresolved supplement reference", "key", key, "position", row.Position)
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res
}
