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
	"sort"
	"strings"
)

// A ScaleType is the transform rule governing how a variable combines
// across one hierarchy boundary. The set is a closed enumeration
// resolved once when the registry is built, never re-decided per
// aggregation call.
type ScaleType int

const (
	// Unity is a plain area-weighted average with no transform.
	Unity ScaleType = iota

	// ActiveFractionOnly restricts the average to sub-elements whose
	// activity indicator (snow- or ice-covered fraction) is nonzero.
	// Inactive elements are excluded from both the numerator and the
	// denominator of the weighted average, not treated as zero-valued.
	ActiveFractionOnly

	// UrbanDensityWeighted combines the urban density classes by their
	// relative land unit weights; non-urban land units contribute zero
	// weight. Valid only as a land-unit-to-gridcell rule.
	UrbanDensityWeighted

	// LayerMasked delegates the column value to the snow-layer adapter,
	// which integrates over only the column's active snow layers. Valid
	// only as a column-to-land-unit rule.
	LayerMasked
)

var scaleTypeNames = []string{"Unity", "ActiveFractionOnly", "UrbanDensityWeighted", "LayerMasked"}

func (s ScaleType) String() string {
	if s < 0 || int(s) >= len(scaleTypeNames) {
		return fmt.Sprintf("ScaleType(%d)", int(s))
	}
	return scaleTypeNames[s]
}

// ParseScaleType matches s against the scale type names, ignoring case.
func ParseScaleType(s string) (ScaleType, error) {
	for i, n := range scaleTypeNames {
		if strings.EqualFold(s, n) {
			return ScaleType(i), nil
		}
	}
	return 0, fmt.Errorf("landgrid: invalid scale type %q", s)
}

// A Rule holds the resolved scale types for one variable, plus the
// documented default used for destination points that remain unmatched
// after a cross-grid remap (a cold start).
type Rule struct {
	ColumnToLandUnit   ScaleType
	LandUnitToGridCell ScaleType
	ColdStartDefault   float64
}

// A Registry holds the scale-type rule for every variable this core
// aggregates. It is populated once at model configuration time, frozen,
// and read-only thereafter; concurrent lookup after Freeze needs no
// locking.
type Registry struct {
	rules  map[string]Rule
	frozen bool
}

// NewRegistry returns an empty scale-type registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register records the aggregation rule for the named variable.
// Registering a variable twice, registering after Freeze, or
// registering a rule at a boundary where it is meaningless
// (UrbanDensityWeighted below the land unit level, LayerMasked above
// the column level) is an error.
func (r *Registry) Register(name string, colToLandUnit, luToGridCell ScaleType, coldStartDefault float64) error {
	if r.frozen {
		return fmt.Errorf("landgrid: registry is frozen; cannot register variable %s", name)
	}
	if _, ok := r.rules[name]; ok {
		return fmt.Errorf("landgrid: variable %s is already registered", name)
	}
	if colToLandUnit == UrbanDensityWeighted {
		return fmt.Errorf("landgrid: variable %s: UrbanDensityWeighted is only valid as a land-unit-to-gridcell rule", name)
	}
	if luToGridCell == LayerMasked {
		return fmt.Errorf("landgrid: variable %s: LayerMasked is only valid as a column-to-land-unit rule", name)
	}
	r.rules[name] = Rule{
		ColumnToLandUnit:   colToLandUnit,
		LandUnitToGridCell: luToGridCell,
		ColdStartDefault:   coldStartDefault,
	}
	return nil
}

// Freeze marks the end of the configuration phase. After Freeze the
// registry is immutable and safe for concurrent lookup.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Rule returns the resolved rule for the named variable, or an
// UnregisteredVariableError if the variable was never registered.
func (r *Registry) Rule(name string) (Rule, error) {
	rule, ok := r.rules[name]
	if !ok {
		return Rule{}, &UnregisteredVariableError{Var: name}
	}
	return rule, nil
}

// Vars returns the registered variable names in ascending order.
func (r *Registry) Vars() []string {
	vars := make([]string, 0, len(r.rules))
	for name := range r.rules {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}
