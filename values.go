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
	"github.com/ctessum/sparse"
)

// A Field holds one variable's raw values at a single hierarchy level,
// one slot per element. Process-model collaborators must mark each slot
// present explicitly; an unmarked slot is absent, not zero, and
// aggregating it raises a MissingSourceValueError.
type Field struct {
	Data    *sparse.DenseArray
	Present []bool
}

func newField(n int) *Field {
	return &Field{
		Data:    sparse.ZerosDense(n),
		Present: make([]bool, n),
	}
}

// Set records val for element i and marks it present. The elements are
// written directly because DenseArray.Set skips zero values, and a zero
// here is a recorded state that must replace whatever came before it.
func (f *Field) Set(i int, val float64) {
	f.Data.Elements[i] = val
	f.Present[i] = true
}

// Value returns the value for element i and whether it is present.
func (f *Field) Value(i int) (float64, bool) {
	return f.Data.Get(i), f.Present[i]
}

// Values holds the raw per-step fields delivered by process-model
// collaborators, keyed by variable name at either patch or column
// granularity.
type Values struct {
	Patch  map[string]*Field
	Column map[string]*Field
}

// NewValues returns an empty values container.
func NewValues() *Values {
	return &Values{
		Patch:  make(map[string]*Field),
		Column: make(map[string]*Field),
	}
}

// PatchField returns the patch-level field for the named variable,
// creating it sized to h if it does not exist.
func (v *Values) PatchField(name string, h *Hierarchy) *Field {
	f, ok := v.Patch[name]
	if !ok {
		f = newField(len(h.Patches))
		v.Patch[name] = f
	}
	return f
}

// ColumnField returns the column-level field for the named variable,
// creating it sized to h if it does not exist.
func (v *Values) ColumnField(name string, h *Hierarchy) *Field {
	f, ok := v.Column[name]
	if !ok {
		f = newField(len(h.Columns))
		v.Column[name] = f
	}
	return f
}

// A State holds the mutable per-node model state for a hierarchy: one
// snow state per column plus the raw variable fields. The hierarchy
// itself stays immutable; all state lives here.
type State struct {
	Snow   []SnowColumnState // one per column
	Values *Values
}

// NewState returns a State for h with every column holding an empty
// (zero active layers) snow state and no recorded values.
func NewState(h *Hierarchy) *State {
	snow := make([]SnowColumnState, len(h.Columns))
	for i := range snow {
		snow[i] = NewSnowColumnState()
	}
	return &State{Snow: snow, Values: NewValues()}
}
