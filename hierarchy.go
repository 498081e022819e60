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

// Package landgrid implements subgrid hierarchical aggregation and
// cross-grid state remapping for land-surface models. A model domain is
// a hierarchy of gridcells, each subdivided into land units (vegetated,
// crop, urban density classes, lake, land ice, wetland), which are
// subdivided into columns, which are subdivided into vegetation patches.
// Raw values computed at patch or column granularity are reduced to one
// scalar per gridcell for exchange with an external coupler, and saved
// state from a prior run can be remapped onto a different grid and
// subgrid configuration to construct initial conditions.
package landgrid

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the default tolerance within which the subgrid
// weights at each hierarchy level must sum to one.
const DefaultTolerance = 1.e-10

// LandUnitKind identifies the broad land-cover kind of a land unit.
type LandUnitKind int

// The valid land unit kinds. The three urban kinds correspond to the
// urban density classes of the surface dataset.
const (
	Vegetated LandUnitKind = iota
	Crop
	UrbanTallBuildingDistrict
	UrbanHighDensity
	UrbanMediumDensity
	Lake
	LandIce
	Wetland
)

var landUnitKindNames = []string{"Vegetated", "Crop", "UrbanTallBuildingDistrict",
	"UrbanHighDensity", "UrbanMediumDensity", "Lake", "LandIce", "Wetland"}

func (k LandUnitKind) String() string {
	if k < 0 || int(k) >= len(landUnitKindNames) {
		return fmt.Sprintf("LandUnitKind(%d)", int(k))
	}
	return landUnitKindNames[k]
}

// IsUrban reports whether k is one of the urban density classes.
func (k LandUnitKind) IsUrban() bool {
	return k == UrbanTallBuildingDistrict || k == UrbanHighDensity || k == UrbanMediumDensity
}

// ParseLandUnitKind matches s against the land unit kind names,
// ignoring case.
func ParseLandUnitKind(s string) (LandUnitKind, error) {
	for i, n := range landUnitKindNames {
		if strings.EqualFold(s, n) {
			return LandUnitKind(i), nil
		}
	}
	return 0, fmt.Errorf("landgrid: invalid land unit kind %q", s)
}

// ColumnRole identifies the function of a column within its land unit.
// Non-urban land units use SoilColumn; urban land units decompose into
// structural surfaces instead of vegetation patches.
type ColumnRole int

// The valid column roles.
const (
	SoilColumn ColumnRole = iota
	RoofColumn
	SunlitWallColumn
	ShadedWallColumn
	ImperviousRoadColumn
	PerviousRoadColumn
)

var columnRoleNames = []string{"Soil", "Roof", "SunlitWall", "ShadedWall",
	"ImperviousRoad", "PerviousRoad"}

func (r ColumnRole) String() string {
	if r < 0 || int(r) >= len(columnRoleNames) {
		return fmt.Sprintf("ColumnRole(%d)", int(r))
	}
	return columnRoleNames[r]
}

// ParseColumnRole matches s against the column role names, ignoring case.
func ParseColumnRole(s string) (ColumnRole, error) {
	for i, n := range columnRoleNames {
		if strings.EqualFold(s, n) {
			return ColumnRole(i), nil
		}
	}
	return 0, fmt.Errorf("landgrid: invalid column role %q", s)
}

// A GridCell is the coarsest spatial unit, the granularity at which
// values are exchanged with the coupler. Its land units are
// Hierarchy.LandUnits[LandUnitStart:LandUnitEnd].
type GridCell struct {
	Centroid geom.Point // [degrees longitude, degrees latitude]
	Area     float64    // [m²]

	LandUnitStart, LandUnitEnd int
}

// A LandUnit is a subdivision of a gridcell by land-cover kind. Its
// columns are Hierarchy.Columns[ColumnStart:ColumnEnd].
type LandUnit struct {
	Kind   LandUnitKind
	Weight float64 // fraction of the parent gridcell
	Cell   int     // index of the parent gridcell

	ColumnStart, ColumnEnd int
}

// A Column is a subdivision of a land unit representing a distinct
// physical sub-state. Its patches are
// Hierarchy.Patches[PatchStart:PatchEnd]; columns with no vegetation
// (urban structural surfaces) own no patches.
type Column struct {
	Role     ColumnRole
	Weight   float64 // fraction of the parent land unit
	LandUnit int     // index of the parent land unit

	PatchStart, PatchEnd int
}

// A Patch is a subdivision of a column by plant or surface functional
// type.
type Patch struct {
	PFT    int     // plant functional type index
	Weight float64 // fraction of the parent column
	Column int     // index of the parent column
}

// A Hierarchy is the static subgrid tree for a model domain. Each level
// is stored as a flat slice with parent-index back-references. A
// Hierarchy is immutable once constructed: the surface configuration
// fixes the land unit, column, and patch counts for the duration of a
// run, and all traversal is read-only.
type Hierarchy struct {
	GridCells []GridCell
	LandUnits []LandUnit
	Columns   []Column
	Patches   []Patch
}

// GridCellSpec, LandUnitSpec, ColumnSpec, and PatchSpec describe the
// nested subgrid structure of one gridcell as delivered by a surface
// configuration loader; NewHierarchy flattens them into arena storage.
type GridCellSpec struct {
	Centroid  geom.Point
	Area      float64
	LandUnits []LandUnitSpec
}

// LandUnitSpec describes one land unit within a GridCellSpec.
type LandUnitSpec struct {
	Kind    LandUnitKind
	Weight  float64
	Columns []ColumnSpec
}

// ColumnSpec describes one column within a LandUnitSpec. Snow, if
// non-nil, supplies the column's initial snow state.
type ColumnSpec struct {
	Role    ColumnRole
	Weight  float64
	Snow    *SnowColumnState
	Patches []PatchSpec
}

// PatchSpec describes one patch within a ColumnSpec.
type PatchSpec struct {
	PFT    int
	Weight float64
}

// NewHierarchy flattens the given gridcell specifications into a
// Hierarchy and its initial State, validating the weight-sum invariant
// at every level: land unit weights must sum to 1 within tolerance in
// each gridcell, column weights within each land unit, and patch
// weights within each column that owns patches. tolerance ≤ 0 selects
// DefaultTolerance.
func NewHierarchy(cells []GridCellSpec, tolerance float64) (*Hierarchy, *State, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	h := new(Hierarchy)
	var snow []SnowColumnState
	for ic, c := range cells {
		gc := GridCell{
			Centroid:      c.Centroid,
			Area:          c.Area,
			LandUnitStart: len(h.LandUnits),
		}
		for _, lu := range c.LandUnits {
			l := LandUnit{
				Kind:        lu.Kind,
				Weight:      lu.Weight,
				Cell:        ic,
				ColumnStart: len(h.Columns),
			}
			iLU := len(h.LandUnits)
			for _, col := range lu.Columns {
				cc := Column{
					Role:       col.Role,
					Weight:     col.Weight,
					LandUnit:   iLU,
					PatchStart: len(h.Patches),
				}
				iCol := len(h.Columns)
				for _, p := range col.Patches {
					h.Patches = append(h.Patches, Patch{
						PFT:    p.PFT,
						Weight: p.Weight,
						Column: iCol,
					})
				}
				cc.PatchEnd = len(h.Patches)
				h.Columns = append(h.Columns, cc)
				if col.Snow != nil {
					if err := col.Snow.check(); err != nil {
						return nil, nil, err
					}
					snow = append(snow, *col.Snow)
				} else {
					snow = append(snow, NewSnowColumnState())
				}
			}
			l.ColumnEnd = len(h.Columns)
			h.LandUnits = append(h.LandUnits, l)
		}
		gc.LandUnitEnd = len(h.LandUnits)
		h.GridCells = append(h.GridCells, gc)
	}
	if err := h.Check(tolerance); err != nil {
		return nil, nil, err
	}
	s := &State{Snow: snow, Values: NewValues()}
	return h, s, nil
}

// NCells returns the number of gridcells in the hierarchy.
func (h *Hierarchy) NCells() int { return len(h.GridCells) }

// CellLandUnits returns the land units owned by gridcell c. The global
// index of the j'th returned land unit is
// h.GridCells[c].LandUnitStart + j.
func (h *Hierarchy) CellLandUnits(c int) []LandUnit {
	gc := &h.GridCells[c]
	return h.LandUnits[gc.LandUnitStart:gc.LandUnitEnd]
}

// LandUnitColumns returns the columns owned by land unit lu.
func (h *Hierarchy) LandUnitColumns(lu int) []Column {
	l := &h.LandUnits[lu]
	return h.Columns[l.ColumnStart:l.ColumnEnd]
}

// ColumnPatches returns the patches owned by column col.
func (h *Hierarchy) ColumnPatches(col int) []Patch {
	c := &h.Columns[col]
	return h.Patches[c.PatchStart:c.PatchEnd]
}

// Check validates the weight-sum invariants at every hierarchy level,
// returning a HierarchyInconsistencyError for the first level whose
// weights do not sum to 1 within tolerance.
func (h *Hierarchy) Check(tolerance float64) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	var w []float64
	for i := range h.GridCells {
		w = w[:0]
		for _, lu := range h.CellLandUnits(i) {
			w = append(w, lu.Weight)
		}
		if err := checkWeightSum("land unit weights in gridcell", i, w, tolerance); err != nil {
			return err
		}
	}
	for i := range h.LandUnits {
		w = w[:0]
		for _, c := range h.LandUnitColumns(i) {
			w = append(w, c.Weight)
		}
		if err := checkWeightSum("column weights in land unit", i, w, tolerance); err != nil {
			return err
		}
	}
	for i := range h.Columns {
		if h.Columns[i].PatchStart == h.Columns[i].PatchEnd {
			continue // terminal column with no vegetation
		}
		w = w[:0]
		for _, p := range h.ColumnPatches(i) {
			w = append(w, p.Weight)
		}
		if err := checkWeightSum("patch weights in column", i, w, tolerance); err != nil {
			return err
		}
	}
	return nil
}

func checkWeightSum(level string, parent int, w []float64, tolerance float64) error {
	sum := floats.Sum(w)
	if diff := sum - 1; diff > tolerance || diff < -tolerance {
		return &HierarchyInconsistencyError{Level: level, Parent: parent, Sum: sum}
	}
	return nil
}
