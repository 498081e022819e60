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
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
)

// An Aggregator reduces raw patch- and column-level values to one
// scalar per gridcell per variable, applying each variable's registered
// scale-type rules at the column-to-land-unit and land-unit-to-gridcell
// boundaries.
//
// Aggregation for one gridcell reads only that gridcell's subtree plus
// the frozen registry and writes only that gridcell's output slot, so
// gridcells are processed by a pool of workers with no inter-cell
// synchronization. Summation order within a cell is fixed (ascending
// element index), so repeated runs on identical input produce
// bit-identical output; any difference beyond that is a defect, not
// roundoff variance.
type Aggregator struct {
	hierarchy *Hierarchy
	registry  *Registry
}

// NewAggregator returns an Aggregator for the given hierarchy and
// registry. The registry must already be frozen: rule resolution
// happens at setup, never mid-aggregation.
func NewAggregator(h *Hierarchy, reg *Registry) (*Aggregator, error) {
	if !reg.Frozen() {
		return nil, fmt.Errorf("landgrid: registry must be frozen before aggregation")
	}
	return &Aggregator{hierarchy: h, registry: reg}, nil
}

// Aggregate reduces the named variables over every gridcell, returning
// one array per variable indexed by gridcell. All rules are resolved
// before any work is dispatched, so an UnregisteredVariableError
// surfaces immediately rather than from a worker.
//
// Each gridcell's results are computed into a worker-local buffer and
// published in full, so cancellation via ctx stops issuing new
// gridcells but never leaves a cell partially written.
func (a *Aggregator) Aggregate(ctx context.Context, state *State, varNames []string) (map[string]*sparse.DenseArray, error) {
	rules := make([]Rule, len(varNames))
	for i, name := range varNames {
		rule, err := a.registry.Rule(name)
		if err != nil {
			return nil, err
		}
		rules[i] = rule
	}

	n := a.hierarchy.NCells()
	out := make(map[string]*sparse.DenseArray, len(varNames))
	for _, name := range varNames {
		out[name] = sparse.ZerosDense(n)
	}

	nprocs := runtime.GOMAXPROCS(0)
	errs := make([]error, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			buf := make([]float64, len(varNames))
			for c := p; c < n; c += nprocs {
				if ctx.Err() != nil {
					return
				}
				if err := a.aggregateCell(c, state, varNames, rules, buf); err != nil {
					errs[p] = err
					return
				}
				for i, name := range varNames {
					out[name].Set(buf[i], c)
				}
			}
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// aggregateCell computes the gridcell value of every requested variable
// for gridcell c into buf.
func (a *Aggregator) aggregateCell(c int, state *State, varNames []string, rules []Rule, buf []float64) error {
	h := a.hierarchy
	gc := &h.GridCells[c]
	for i, name := range varNames {
		rule := rules[i]
		var num, den float64
		for lu := gc.LandUnitStart; lu < gc.LandUnitEnd; lu++ {
			l := &h.LandUnits[lu]
			if rule.LandUnitToGridCell == UrbanDensityWeighted && !l.Kind.IsUrban() {
				continue
			}
			if rule.LandUnitToGridCell == ActiveFractionOnly && !a.landUnitActive(lu, state) {
				continue
			}
			luVal, ok, err := a.landUnitValue(c, lu, name, rule, state)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			num += l.Weight * luVal
			den += l.Weight
		}
		if den == 0 {
			// No contributing elements anywhere in the cell (for
			// example an urban-only variable in a cell with no urban
			// land unit): the gridcell reports zero.
			buf[i] = 0
			continue
		}
		buf[i] = num / den
	}
	return nil
}

// landUnitValue combines land unit lu's columns into one value using
// the variable's column-to-land-unit rule. ok is false when no column
// contributes (every column excluded, or a vegetation-only variable on
// a land unit whose columns own no patches).
func (a *Aggregator) landUnitValue(c, lu int, name string, rule Rule, state *State) (val float64, ok bool, err error) {
	h := a.hierarchy
	l := &h.LandUnits[lu]
	var num, den float64
	for col := l.ColumnStart; col < l.ColumnEnd; col++ {
		if rule.ColumnToLandUnit == ActiveFractionOnly && state.Snow[col].CoveredFraction == 0 {
			continue
		}
		v, ok, err := a.columnValue(c, col, name, rule, state)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		w := h.Columns[col].Weight
		num += w * v
		den += w
	}
	if den == 0 {
		return 0, false, nil
	}
	return num / den, true, nil
}

// columnValue produces column col's value for the variable: the
// snow-layer adapter for LayerMasked variables, the patch-weighted mean
// for patch-level fields, or the recorded column value otherwise. ok is
// false for a column that is terminal for the variable (a patch-level
// variable on a column owning no patches).
func (a *Aggregator) columnValue(c, col int, name string, rule Rule, state *State) (val float64, ok bool, err error) {
	h := a.hierarchy
	cc := &h.Columns[col]
	if rule.ColumnToLandUnit == LayerMasked {
		kind := h.LandUnits[cc.LandUnit].Kind
		v, err := layeredColumnValue(name, kind, &state.Snow[col], c, col)
		if err != nil {
			return 0, false, err
		}
		return v, true, nil
	}
	if f, isPatchVar := state.Values.Patch[name]; isPatchVar {
		if cc.PatchStart == cc.PatchEnd {
			return 0, false, nil
		}
		var num, den float64
		for p := cc.PatchStart; p < cc.PatchEnd; p++ {
			v, present := f.Value(p)
			if !present {
				return 0, false, &MissingSourceValueError{Var: name, Level: "patch", GridCell: c, Index: p}
			}
			w := h.Patches[p].Weight
			num += w * v
			den += w
		}
		return num / den, true, nil
	}
	if f, isColVar := state.Values.Column[name]; isColVar {
		v, present := f.Value(col)
		if !present {
			return 0, false, &MissingSourceValueError{Var: name, Level: "column", GridCell: c, Index: col}
		}
		return v, true, nil
	}
	return 0, false, &MissingSourceValueError{Var: name, Level: "column", GridCell: c, Index: -1}
}

// landUnitActive reports whether any column of land unit lu has a
// nonzero snow-covered fraction.
func (a *Aggregator) landUnitActive(lu int, state *State) bool {
	l := &a.hierarchy.LandUnits[lu]
	for col := l.ColumnStart; col < l.ColumnEnd; col++ {
		if state.Snow[col].CoveredFraction > 0 {
			return true
		}
	}
	return false
}
