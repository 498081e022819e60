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
	"fmt"
	"math"
)

// MaxSnowLayers is the maximum number of active snow layers a column
// can hold.
const MaxSnowLayers = 5

// Names of the layer-masked snow diagnostics handled by the snow-layer
// adapter.
const (
	SnowIceMass    = "SNOWICE" // per-layer ice mass [kg/m²]
	SnowLiquidMass = "SNOWLIQ" // per-layer liquid water mass [kg/m²]
)

// A SnowColumnState holds a column's multi-layer snow state: up to
// MaxSnowLayers vertical sublayers of which the first ActiveLayers are
// populated. Slots at indices ≥ ActiveLayers carry NaN sentinels; they
// are never averaged as if they were zero, and any value stored in them
// must not influence an aggregate.
type SnowColumnState struct {
	ActiveLayers int

	// CoveredFraction is the snow-covered fraction of the column
	// [0–1]. It is the activity indicator for ActiveFractionOnly
	// aggregation, and it scales the layered diagnostics of urban
	// columns.
	CoveredFraction float64

	IceMass     [MaxSnowLayers]float64 // [kg/m²]
	LiquidMass  [MaxSnowLayers]float64 // [kg/m²]
	Thickness   [MaxSnowLayers]float64 // [m]
	Temperature [MaxSnowLayers]float64 // [K]
}

// NewSnowColumnState returns a snow state with no active layers and all
// layer slots set to the NaN sentinel.
func NewSnowColumnState() SnowColumnState {
	var s SnowColumnState
	for i := 0; i < MaxSnowLayers; i++ {
		s.IceMass[i] = math.NaN()
		s.LiquidMass[i] = math.NaN()
		s.Thickness[i] = math.NaN()
		s.Temperature[i] = math.NaN()
	}
	return s
}

// SetLayer populates layer i. Layers must be populated contiguously
// from the surface down: i must be less than or equal to the current
// ActiveLayers, and populating layer i == ActiveLayers activates it.
func (s *SnowColumnState) SetLayer(i int, iceMass, liquidMass, thickness, temperature float64) error {
	if i < 0 || i >= MaxSnowLayers {
		return fmt.Errorf("landgrid: snow layer index %d out of range [0,%d)", i, MaxSnowLayers)
	}
	if i > s.ActiveLayers {
		return fmt.Errorf("landgrid: snow layer %d populated before layer %d", i, s.ActiveLayers)
	}
	s.IceMass[i] = iceMass
	s.LiquidMass[i] = liquidMass
	s.Thickness[i] = thickness
	s.Temperature[i] = temperature
	if i == s.ActiveLayers {
		s.ActiveLayers++
	}
	return nil
}

// TotalIce returns the total ice mass summed over the active layers.
// A column with no snow totals exactly zero.
func (s *SnowColumnState) TotalIce() float64 { return s.totalActive(&s.IceMass) }

// TotalLiquid returns the total liquid water mass summed over the
// active layers.
func (s *SnowColumnState) TotalLiquid() float64 { return s.totalActive(&s.LiquidMass) }

func (s *SnowColumnState) totalActive(vals *[MaxSnowLayers]float64) float64 {
	sum := 0.
	for i := 0; i < s.ActiveLayers; i++ {
		sum += vals[i]
	}
	return sum
}

func (s *SnowColumnState) check() error {
	if s.ActiveLayers < 0 || s.ActiveLayers > MaxSnowLayers {
		return fmt.Errorf("landgrid: snow state has %d active layers, expected 0–%d",
			s.ActiveLayers, MaxSnowLayers)
	}
	if s.CoveredFraction < 0 || s.CoveredFraction > 1 {
		return fmt.Errorf("landgrid: snow-covered fraction %g outside [0,1]", s.CoveredFraction)
	}
	return nil
}

// layeredColumnValue is the snow-layer adapter: it produces the
// per-column scalar for a LayerMasked variable, feeding the
// column-to-land-unit aggregation step.
//
// The value is the thickness-weighted mean over only the active layers
// (each layer weighted by its fraction of the total active snow depth);
// inactive layer slots are excluded entirely. A column with no active
// layers contributes exactly zero with its full column weight: no snow
// is a defined state, not missing data. A NaN in an active layer, by
// contrast, is a process fault and raises MissingSourceValueError.
//
// For columns in urban land units the result is additionally scaled by
// the column's own snow-covered fraction before it is combined with
// non-urban columns at the land unit level; omitting that factor
// historically double-counted urban snow relative to vegetated columns.
func layeredColumnValue(varName string, kind LandUnitKind, s *SnowColumnState, cell, col int) (float64, error) {
	var vals *[MaxSnowLayers]float64
	switch varName {
	case SnowIceMass:
		vals = &s.IceMass
	case SnowLiquidMass:
		vals = &s.LiquidMass
	default:
		return 0, fmt.Errorf("landgrid: variable %s is not a layer-masked snow diagnostic", varName)
	}
	if s.ActiveLayers == 0 {
		return 0, nil
	}
	var num, den float64
	for i := 0; i < s.ActiveLayers; i++ {
		dz, v := s.Thickness[i], vals[i]
		if math.IsNaN(dz) || math.IsNaN(v) {
			return 0, &MissingSourceValueError{Var: varName, Level: "column", GridCell: cell, Index: col}
		}
		num += dz * v
		den += dz
	}
	if den == 0 {
		return 0, nil
	}
	v := num / den
	if kind.IsUrban() {
		v *= s.CoveredFraction
	}
	return v, nil
}
