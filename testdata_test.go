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
	"testing"

	"github.com/ctessum/geom"
)

// surfaceTestData returns a four-gridcell domain exercising every land
// unit arrangement the tests need: mixed vegetated/urban, pure
// vegetated with snow, lake, and glacier.
func surfaceTestData() []GridCellSpec {
	roofSnow := NewSnowColumnState()
	roofSnow.CoveredFraction = 0.8
	if err := roofSnow.SetLayer(0, 2, 0.5, 0.05, 268); err != nil {
		panic(err)
	}

	vegSnow := NewSnowColumnState()
	vegSnow.CoveredFraction = 0.6
	if err := vegSnow.SetLayer(0, 4, 1, 0.1, 266); err != nil {
		panic(err)
	}
	if err := vegSnow.SetLayer(1, 8, 2, 0.2, 264); err != nil {
		panic(err)
	}

	iceSnow := NewSnowColumnState()
	iceSnow.CoveredFraction = 1
	if err := iceSnow.SetLayer(0, 20, 0, 0.3, 260); err != nil {
		panic(err)
	}

	return []GridCellSpec{
		{
			Centroid: geom.Point{X: 0, Y: 40},
			Area:     1.e8,
			LandUnits: []LandUnitSpec{
				{
					Kind:   Vegetated,
					Weight: 0.6,
					Columns: []ColumnSpec{
						{
							Role:   SoilColumn,
							Weight: 1,
							Patches: []PatchSpec{
								{PFT: 1, Weight: 0.5},
								{PFT: 2, Weight: 0.5},
							},
						},
					},
				},
				{
					Kind:   UrbanHighDensity,
					Weight: 0.4,
					Columns: []ColumnSpec{
						{Role: RoofColumn, Weight: 0.4, Snow: &roofSnow},
						{Role: ImperviousRoadColumn, Weight: 0.6},
					},
				},
			},
		},
		{
			Centroid: geom.Point{X: 1, Y: 40},
			Area:     1.e8,
			LandUnits: []LandUnitSpec{
				{
					Kind:   Vegetated,
					Weight: 1,
					Columns: []ColumnSpec{
						{
							Role:   SoilColumn,
							Weight: 1,
							Snow:   &vegSnow,
							Patches: []PatchSpec{
								{PFT: 1, Weight: 1},
							},
						},
					},
				},
			},
		},
		{
			Centroid: geom.Point{X: 2, Y: 40},
			Area:     1.e8,
			LandUnits: []LandUnitSpec{
				{
					Kind:   Lake,
					Weight: 1,
					Columns: []ColumnSpec{
						{Role: SoilColumn, Weight: 1},
					},
				},
			},
		},
		{
			Centroid: geom.Point{X: 3, Y: 40},
			Area:     1.e8,
			LandUnits: []LandUnitSpec{
				{
					Kind:   LandIce,
					Weight: 1,
					Columns: []ColumnSpec{
						{Role: SoilColumn, Weight: 1, Snow: &iceSnow},
					},
				},
			},
		},
	}
}

// testRegistry returns a frozen registry covering each scale type.
func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, r := range []struct {
		name            string
		colToLU, luToGC ScaleType
		def             float64
	}{
		{"FSA", Unity, Unity, 0},
		{"TV", Unity, Unity, 283.15},
		{"URBANT", Unity, UrbanDensityWeighted, 283.15},
		{"FSNO", ActiveFractionOnly, Unity, 0},
		{SnowIceMass, LayerMasked, Unity, 0},
		{SnowLiquidMass, LayerMasked, Unity, 0},
	} {
		if err := reg.Register(r.name, r.colToLU, r.luToGC, r.def); err != nil {
			t.Fatal(err)
		}
	}
	reg.Freeze()
	return reg
}

// fillTestValues records a value for every slot the test registry needs:
// FSA, URBANT, and FSNO at column level, TV at patch level.
func fillTestValues(h *Hierarchy, state *State) {
	fsa := state.Values.ColumnField("FSA", h)
	urbant := state.Values.ColumnField("URBANT", h)
	fsno := state.Values.ColumnField("FSNO", h)
	for i := range h.Columns {
		fsa.Set(i, 10+float64(i))
		urbant.Set(i, 300+float64(i))
		fsno.Set(i, state.Snow[i].CoveredFraction)
	}
	tv := state.Values.PatchField("TV", h)
	for i := range h.Patches {
		tv.Set(i, 280+float64(i))
	}
}
