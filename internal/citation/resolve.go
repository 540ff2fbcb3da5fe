// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"log/slog"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// Resolution is the outcome of resolving one row's citation keys.
type Resolution struct {
	Resolved   []types.ResolvedCitation `json:"resolved"`
	Unresolved []string                 `json:"unresolved,omitempty"`
}

// Resolver looks citation keys up in one document's reference table.
type Resolver struct {
	table *types.ReferenceTable
	log   *slog.Logger
}

// NewResolver returns a resolver over table. A nil logger discards output.
func NewResolver(table *types.ReferenceTable, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{table: table, log: logger}
}

// Resolve resolves the citations of row. Each missing key is reported as an
// UnresolvedCitationError in diag and omitted from the resolved list; the
// remaining keys still resolve.
func (r *Resolver) Resolve(row types.RecommendationRow, diag *types.Diagnostics) Resolution {
	return r.ResolveKeys(row.Citations, row.Position, diag)
}

// ResolveKeys resolves keys cited at the given fragment position. Keys are
// resolved in order and duplicates are resolved once.
func (r *Resolver) ResolveKeys(keys []string, position int, diag *types.Diagnostics) Resolution {
	var res Resolution
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true

		entry, ok := r.table.Lookup(k)
		if !ok {
			res.Unresolved = append(res.Unresolved, k)
			err := &types.UnresolvedCitationError{Key: k, Position: position}
			if diag != nil {
				diag.Record(err)
			}
			r.log.Warn("unresolved citation", "key", k, "position", position)
			continue
		}
		res.Resolved = append(res.Resolved, types.ResolvedCitation{Key: k, Entry: entry})
	}
	return res
}
