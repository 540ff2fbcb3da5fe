// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence reconstructs multi-column evidence tables from a data
// supplement's fragment stream and maps their rows onto named fields.
// Implements: ColumnReconstructor (header clustering, row detection, cell
//
//	splitting); RowSchemaMapper (fixed-arity schemas, live headers);
//	docs/ARCHITECTURE § Evidence Tables.
package evidence

import (
	"sort"
	"strings"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// ClusterColumns groups header fragments into columns. A fragment joins the
// first existing cluster whose left lies strictly within gap of its own,
// appending its text and widening the cluster; otherwise it starts a new
// cluster at its left. Clusters are returned sorted by left with spaces in
// names replaced by underscores and empty names removed.
//
// Cluster lefts are pairwise at least gap apart, so clustering an already
// clustered header set returns it unchanged.
func ClusterColumns(headers []types.ColumnSpec, gap int) []types.ColumnSpec {
	var clusters []types.ColumnSpec
	for _, h := range headers {
		joined := false
		for i := range clusters {
			c := &clusters[i]
			if c.Left-gap < h.Left && h.Left < c.Left+gap {
				c.Name = c.Name + " " + h.Name
				c.Width = max(c.Width, h.Width)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, h)
		}
	}

	sort.SliceStable(clusters, func(a, b int) bool { return clusters[a].Left < clusters[b].Left })

	out := clusters[:0]
	for _, c := range clusters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		c.Name = strings.ReplaceAll(name, " ", "_")
		out = append(out, c)
	}
	return out
}

// cellFragment is one fragment appended to an open row.
type cellFragment struct {
	text string
	left int
}

// SplitCells derives cell boundaries from the lefts of a row's fragments in
// arrival order. A fragment more than tolerance right of the current cell's
// anchor starts a new cell and becomes the anchor; anything else, including
// indented bullet lines and fragments further left, joins the current cell.
func SplitCells(texts []string, lefts []int, tolerance int) []string {
	if len(texts) == 0 || len(texts) != len(lefts) {
		return nil
	}
	var (
		cells  []string
		cur    []string
		anchor = lefts[0]
	)
	for i, t := range texts {
		if lefts[i] > anchor+tolerance {
			cells = append(cells, strings.Join(cur, " "))
			cur = nil
			anchor = lefts[i]
		}
		cur = append(cur, t)
	}
	return append(cells, strings.Join(cur, " "))
}

func splitFragments(data []cellFragment, tolerance int) []string {
	texts := make([]string, len(data))
	lefts := make([]int, len(data))
	for i, d := range data {
		texts[i], lefts[i] = d.text, d.left
	}
	return SplitCells(texts, lefts, tolerance)
}
