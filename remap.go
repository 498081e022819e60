/*
Copyright © 2026 the landgrid authors.
This file is part of landgrid.

landgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

landgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with landgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package landgrid

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// EarthRadius is the radius of the spherical Earth assumed when
// measuring great-circle distances between gridcell centroids [m].
const EarthRadius = 6370997.

// RemapConfig configures correspondence building.
type RemapConfig struct {
	// SearchRadius is the maximum great-circle distance [m] to search
	// from a destination gridcell centroid for a matching source
	// gridcell. Destination subgrid nodes with no match inside the
	// radius are cold-started.
	SearchRadius float64
}

// A Correspondence maps every destination column and patch to a source
// hierarchy node, or to -1 where no source node matches. It is built
// once per remap operation and discarded after the initial state is
// materialized.
type Correspondence struct {
	// SourceColumn[i] is the source column matched to destination
	// column i, or -1.
	SourceColumn []int
	// SourcePatch[i] is the source patch matched to destination patch
	// i, or -1.
	SourcePatch []int

	src, dst *Hierarchy
}

// luColKey is a remap match key: a destination column matches a source
// column when their parent land unit kinds and column roles agree.
type luColKey struct {
	Kind LandUnitKind
	Role ColumnRole
}

// srcCellRef is an rtree entry locating one source gridcell by its
// centroid.
type srcCellRef struct {
	geom.Point
	cell int
}

// BuildCorrespondence matches every destination (gridcell, land unit
// kind, column role) key to the nearest source gridcell containing a
// land unit of the same kind with a column of the same role, by
// great-circle distance between gridcell centroids, searching out to
// cfg.SearchRadius. Within a matched column, destination patches match
// source patches of the same plant functional type.
//
// The result is deterministic: identical hierarchies produce an
// identical mapping on every invocation, with ties among equidistant
// source gridcells broken by ascending source gridcell index.
func BuildCorrespondence(ctx context.Context, src, dst *Hierarchy, cfg RemapConfig) (*Correspondence, error) {
	if cfg.SearchRadius <= 0 {
		return nil, fmt.Errorf("landgrid: remap search radius must be positive")
	}

	// Index the source: an rtree over gridcell centroids, plus the
	// first (lowest-index) column for each (kind, role) key in each
	// source gridcell.
	tree := rtree.NewTree(25, 50)
	srcCols := make([]map[luColKey]int, src.NCells())
	for c := range src.GridCells {
		tree.Insert(&srcCellRef{Point: src.GridCells[c].Centroid, cell: c})
		cols := make(map[luColKey]int)
		gc := &src.GridCells[c]
		for lu := gc.LandUnitStart; lu < gc.LandUnitEnd; lu++ {
			l := &src.LandUnits[lu]
			for col := l.ColumnStart; col < l.ColumnEnd; col++ {
				key := luColKey{Kind: l.Kind, Role: src.Columns[col].Role}
				if _, ok := cols[key]; !ok {
					cols[key] = col
				}
			}
		}
		srcCols[c] = cols
	}

	corr := &Correspondence{
		SourceColumn: make([]int, len(dst.Columns)),
		SourcePatch:  make([]int, len(dst.Patches)),
		src:          src,
		dst:          dst,
	}

	// Matching one destination gridcell reads only the source index
	// and writes only that cell's own column and patch slots.
	n := dst.NCells()
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for c := p; c < n; c += nprocs {
				if ctx.Err() != nil {
					return
				}
				corr.matchCell(c, tree, srcCols, cfg.SearchRadius)
			}
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return corr, nil
}

// matchCell resolves the source column and patch for every subgrid node
// of destination gridcell c.
func (corr *Correspondence) matchCell(c int, tree *rtree.Rtree, srcCols []map[luColKey]int, radius float64) {
	dst := corr.dst
	gc := &dst.GridCells[c]
	candidates := searchWithin(tree, gc.Centroid, radius)
	for lu := gc.LandUnitStart; lu < gc.LandUnitEnd; lu++ {
		l := &dst.LandUnits[lu]
		for col := l.ColumnStart; col < l.ColumnEnd; col++ {
			key := luColKey{Kind: l.Kind, Role: dst.Columns[col].Role}
			srcCol := -1
			bestDist := math.Inf(1)
			bestCell := -1
			for _, cand := range candidates {
				sc, ok := srcCols[cand.cell][key]
				if !ok {
					continue
				}
				d := greatCircleDistance(gc.Centroid, cand.Point)
				if d > radius {
					continue
				}
				// Equidistant ties resolve to the lowest source
				// gridcell index.
				if d < bestDist || (d == bestDist && cand.cell < bestCell) {
					bestDist, bestCell, srcCol = d, cand.cell, sc
				}
			}
			corr.SourceColumn[col] = srcCol
			corr.matchPatches(col, srcCol)
		}
	}
}

// matchPatches matches each patch of destination column dstCol to the
// first source patch of the same plant functional type within srcCol.
func (corr *Correspondence) matchPatches(dstCol, srcCol int) {
	src, dst := corr.src, corr.dst
	cc := &dst.Columns[dstCol]
	for p := cc.PatchStart; p < cc.PatchEnd; p++ {
		corr.SourcePatch[p] = -1
		if srcCol < 0 {
			continue
		}
		sc := &src.Columns[srcCol]
		for sp := sc.PatchStart; sp < sc.PatchEnd; sp++ {
			if src.Patches[sp].PFT == dst.Patches[p].PFT {
				corr.SourcePatch[p] = sp
				break
			}
		}
	}
}

// searchWithin returns the source cells whose centroids fall inside the
// bounding box covering a great-circle radius around p, sorted by
// ascending source gridcell index so that downstream selection is
// independent of rtree traversal order.
func searchWithin(tree *rtree.Rtree, p geom.Point, radius float64) []*srcCellRef {
	dLat := radius / EarthRadius * 180 / math.Pi
	dLon := 180.
	if c := math.Cos(p.Y * math.Pi / 180); c > 1.e-6 {
		dLon = math.Min(dLat/c, 180)
	}
	b := &geom.Bounds{
		Min: geom.Point{X: p.X - dLon, Y: p.Y - dLat},
		Max: geom.Point{X: p.X + dLon, Y: p.Y + dLat},
	}
	var refs []*srcCellRef
	for _, item := range tree.SearchIntersect(b) {
		refs = append(refs, item.(*srcCellRef))
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].cell < refs[j].cell })
	return refs
}

// greatCircleDistance returns the haversine distance [m] between two
// lon/lat points [degrees].
func greatCircleDistance(a, b geom.Point) float64 {
	const degToRad = math.Pi / 180
	lat1, lat2 := a.Y*degToRad, b.Y*degToRad
	dLat := lat2 - lat1
	dLon := (b.X - a.X) * degToRad
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Materialize constructs the destination hierarchy's initial state from
// the source state. Matched destination columns receive the source
// column's snow state and recorded values; unmatched destination nodes
// and nodes whose matched source slot holds no recorded value receive
// the variable's registered cold-start default and are recorded in the
// returned report. A cold start is an expected outcome of remapping
// onto a different grid, never an error, and no destination node is
// silently dropped.
func (corr *Correspondence) Materialize(ctx context.Context, srcState *State, reg *Registry) (*State, *ColdStartReport, error) {
	if !reg.Frozen() {
		return nil, nil, fmt.Errorf("landgrid: registry must be frozen before remap materialization")
	}
	dst := corr.dst
	dstState := NewState(dst)
	vars := reg.Vars()

	// Per-variable levels and destination fields are fixed before the
	// parallel phase; workers then write only their own cells' slots.
	plans := make([]varPlan, 0, len(vars))
	for _, name := range vars {
		rule, err := reg.Rule(name)
		if err != nil {
			return nil, nil, err
		}
		if rule.ColumnToLandUnit == LayerMasked {
			continue // layered diagnostics travel with the snow state
		}
		plan := varPlan{name: name, rule: rule}
		if f, ok := srcState.Values.Patch[name]; ok {
			plan.srcPatch = f
			plan.dstPatch = dstState.Values.PatchField(name, dst)
		} else if f, ok := srcState.Values.Column[name]; ok {
			plan.srcCol = f
			plan.dstCol = dstState.Values.ColumnField(name, dst)
		} else {
			// Variable absent from the source dataset entirely: every
			// destination column cold-starts.
			plan.dstCol = dstState.Values.ColumnField(name, dst)
		}
		plans = append(plans, plan)
	}

	n := dst.NCells()
	cellReports := make([][]ColdStartEntry, n)
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for c := p; c < n; c += nprocs {
				if ctx.Err() != nil {
					return
				}
				cellReports[c] = corr.materializeCell(c, srcState, dstState, plans)
			}
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := new(ColdStartReport)
	for _, entries := range cellReports {
		report.Entries = append(report.Entries, entries...)
	}
	return dstState, report, nil
}

// A varPlan pre-resolves where one variable's values live in the source
// and destination states, so materialization workers never touch the
// Values maps.
type varPlan struct {
	name     string
	rule     Rule
	srcPatch *Field // non-nil if patch-level in the source
	srcCol   *Field // non-nil if column-level in the source
	dstPatch *Field
	dstCol   *Field
}

// materializeCell fills destination gridcell c's state and returns its
// cold-start entries in ascending variable order per subgrid node.
func (corr *Correspondence) materializeCell(c int, srcState, dstState *State, plans []varPlan) []ColdStartEntry {
	dst := corr.dst
	var entries []ColdStartEntry
	gc := &dst.GridCells[c]
	for lu := gc.LandUnitStart; lu < gc.LandUnitEnd; lu++ {
		l := &dst.LandUnits[lu]
		for col := l.ColumnStart; col < l.ColumnEnd; col++ {
			sc := corr.SourceColumn[col]
			if sc >= 0 {
				dstState.Snow[col] = srcState.Snow[sc]
			} else {
				// NewState already gave the column an empty snow state;
				// report the layered diagnostics once per column.
				entries = append(entries, ColdStartEntry{
					GridCell: c,
					Var:      "snow state",
					Reason: fmt.Sprintf("no source column with land unit kind %v and role %v within the search radius",
						l.Kind, dst.Columns[col].Role),
				})
			}
			for i := range plans {
				p := &plans[i]
				switch {
				case p.srcPatch != nil:
					entries = corr.materializePatches(c, col, sc, p, entries)
				case p.srcCol != nil:
					if sc >= 0 {
						if v, present := p.srcCol.Value(sc); present {
							p.dstCol.Set(col, v)
							continue
						}
						entries = append(entries, ColdStartEntry{
							GridCell: c, Var: p.name,
							Reason: fmt.Sprintf("source column %d holds no recorded value", sc),
						})
					} else {
						entries = append(entries, ColdStartEntry{
							GridCell: c, Var: p.name,
							Reason: fmt.Sprintf("no source column with land unit kind %v and role %v within the search radius",
								l.Kind, dst.Columns[col].Role),
						})
					}
					p.dstCol.Set(col, p.rule.ColdStartDefault)
				default:
					entries = append(entries, ColdStartEntry{
						GridCell: c, Var: p.name,
						Reason: "variable absent from the source dataset",
					})
					p.dstCol.Set(col, p.rule.ColdStartDefault)
				}
			}
		}
	}
	return entries
}

// materializePatches copies one patch-level variable into destination
// column col, defaulting patches with no source counterpart.
func (corr *Correspondence) materializePatches(c, col, srcCol int, p *varPlan, entries []ColdStartEntry) []ColdStartEntry {
	dst := corr.dst
	cc := &dst.Columns[col]
	for dp := cc.PatchStart; dp < cc.PatchEnd; dp++ {
		sp := corr.SourcePatch[dp]
		if sp >= 0 {
			if v, present := p.srcPatch.Value(sp); present {
				p.dstPatch.Set(dp, v)
				continue
			}
			entries = append(entries, ColdStartEntry{
				GridCell: c, Var: p.name,
				Reason: fmt.Sprintf("source patch %d holds no recorded value", sp),
			})
		} else {
			reason := "no source patch with matching plant functional type"
			if srcCol < 0 {
				reason = "no source column with matching land unit kind and role within the search radius"
			}
			entries = append(entries, ColdStartEntry{GridCell: c, Var: p.name, Reason: reason})
		}
		p.dstPatch.Set(dp, p.rule.ColdStartDefault)
	}
	return entries
}
