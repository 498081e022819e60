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
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func TestLayeredThicknessWeighting(t *testing.T) {
	s := NewSnowColumnState()
	s.CoveredFraction = 1
	ice := []float64{5, 10, 15}
	dz := []float64{0.1, 0.2, 0.3}
	for i := range ice {
		if err := s.SetLayer(i, ice[i], 1, dz[i], 265); err != nil {
			t.Fatal(err)
		}
	}
	// A stale value in an inactive slot must not alter the result.
	s.IceMass[3] = 999
	s.Thickness[3] = 999

	got, err := layeredColumnValue(SnowIceMass, Vegetated, &s, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := (0.1*5 + 0.2*10 + 0.3*15) / 0.6
	if math.Abs(got-want) > testTolerance {
		t.Errorf("got %g, want %g", got, want)
	}
}

func TestNoSnowContributesZero(t *testing.T) {
	// A column with no snow contributes a defined zero with its full
	// column weight; it is not excluded and not missing.
	snowy := NewSnowColumnState()
	snowy.CoveredFraction = 1
	if err := snowy.SetLayer(0, 6, 1, 0.1, 265); err != nil {
		t.Fatal(err)
	}
	cells := []GridCellSpec{{
		Centroid: geom.Point{X: 0, Y: 40},
		Area:     1.e8,
		LandUnits: []LandUnitSpec{
			{Kind: Vegetated, Weight: 1, Columns: []ColumnSpec{
				{Role: SoilColumn, Weight: 0.5, Snow: &snowy},
				{Role: SoilColumn, Weight: 0.5},
			}},
		},
	}}
	h, state, err := NewHierarchy(cells, 0)
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry()
	if err := reg.Register(SnowIceMass, LayerMasked, Unity, 0); err != nil {
		t.Fatal(err)
	}
	reg.Freeze()
	agg, err := NewAggregator(h, reg)
	if err != nil {
		t.Fatal(err)
	}
	out, err := agg.Aggregate(context.Background(), state, []string{SnowIceMass})
	if err != nil {
		t.Fatal(err)
	}
	// The snowy column's layered value is 6; the snow-free column
	// averages in at zero, halving the land unit value.
	if got := out[SnowIceMass].Get(0); math.Abs(got-3) > testTolerance {
		t.Errorf("got %g, want 3", got)
	}
}

func TestUrbanSnowFractionScaling(t *testing.T) {
	// Identical per-layer ice mass, different snow-covered fractions:
	// the urban contributions must be proportional to the fractions.
	value := func(fraction float64) float64 {
		s := NewSnowColumnState()
		s.CoveredFraction = fraction
		if err := s.SetLayer(0, 12, 2, 0.2, 266); err != nil {
			t.Fatal(err)
		}
		v, err := layeredColumnValue(SnowIceMass, UrbanHighDensity, &s, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	half, full := value(0.5), value(1)
	if math.Abs(half-0.5*full) > testTolerance {
		t.Errorf("fraction 0.5 contribution %g is not half of fraction 1 contribution %g", half, full)
	}

	// Vegetated columns do not carry the urban correction.
	s := NewSnowColumnState()
	s.CoveredFraction = 0.5
	if err := s.SetLayer(0, 12, 2, 0.2, 266); err != nil {
		t.Fatal(err)
	}
	veg, err := layeredColumnValue(SnowIceMass, Vegetated, &s, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(veg-12) > testTolerance {
		t.Errorf("vegetated column: got %g, want 12", veg)
	}
}

func TestNaNActiveLayerIsMissing(t *testing.T) {
	s := NewSnowColumnState()
	s.CoveredFraction = 1
	if err := s.SetLayer(0, math.NaN(), 1, 0.1, 265); err != nil {
		t.Fatal(err)
	}
	_, err := layeredColumnValue(SnowIceMass, Vegetated, &s, 3, 7)
	var missing *MissingSourceValueError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingSourceValueError", err)
	}
	if missing.GridCell != 3 || missing.Index != 7 {
		t.Errorf("error identifies gridcell %d column %d, want 3 and 7", missing.GridCell, missing.Index)
	}
}

func TestSetLayerContiguous(t *testing.T) {
	s := NewSnowColumnState()
	if err := s.SetLayer(2, 1, 1, 0.1, 265); err == nil {
		t.Error("populating layer 2 before layers 0-1: expected an error")
	}
	if err := s.SetLayer(0, 1, 1, 0.1, 265); err != nil {
		t.Fatal(err)
	}
	if s.ActiveLayers != 1 {
		t.Errorf("ActiveLayers = %d, want 1", s.ActiveLayers)
	}
	// Rewriting an already-active layer does not change the count.
	if err := s.SetLayer(0, 2, 1, 0.1, 264); err != nil {
		t.Fatal(err)
	}
	if s.ActiveLayers != 1 {
		t.Errorf("ActiveLayers = %d, want 1", s.ActiveLayers)
	}
	if err := s.SetLayer(MaxSnowLayers, 1, 1, 0.1, 265); err == nil {
		t.Error("layer index beyond MaxSnowLayers: expected an error")
	}
}

func TestSnowTotals(t *testing.T) {
	s := NewSnowColumnState()
	for i, m := range []float64{4, 8} {
		if err := s.SetLayer(i, m, m/4, 0.1, 266); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.TotalIce(); got != 12 {
		t.Errorf("TotalIce() = %g, want 12", got)
	}
	if got := s.TotalLiquid(); got != 3 {
		t.Errorf("TotalLiquid() = %g, want 3", got)
	}

	empty := NewSnowColumnState()
	if got := empty.TotalIce(); got != 0 {
		t.Errorf("empty TotalIce() = %g, want 0", got)
	}
}
