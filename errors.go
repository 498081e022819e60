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

import "fmt"

// A HierarchyInconsistencyError is returned when the subgrid weights at
// some hierarchy level do not sum to 1 within tolerance. It is fatal:
// a run must not start on an inconsistent hierarchy.
type HierarchyInconsistencyError struct {
	Level  string  // the level whose weights are inconsistent
	Parent int     // index of the parent element at that level
	Sum    float64 // the offending weight sum
}

func (e *HierarchyInconsistencyError) Error() string {
	return fmt.Sprintf("landgrid: %s %d sum to %g, expected 1", e.Level, e.Parent, e.Sum)
}

// An UnregisteredVariableError is returned when aggregation is requested
// for a variable that has no scale-type registration. Aggregation never
// falls back to a default rule: a silently defaulted rule produces
// output that is plausible but wrong.
type UnregisteredVariableError struct {
	Var string
}

func (e *UnregisteredVariableError) Error() string {
	return fmt.Sprintf("landgrid: variable %s has no registered scale type", e.Var)
}

// A MissingSourceValueError is returned when an element that should
// contribute to an aggregate has no recorded value for the variable.
// This is a true data-absence fault, distinct from a legitimate zero
// (for example a column with no snow), and it is fatal for the
// gridcell/variable pair rather than silently skipped.
type MissingSourceValueError struct {
	Var      string
	Level    string // "patch" or "column"
	GridCell int
	Index    int // element index at Level, or -1 if no element holds the variable
}

func (e *MissingSourceValueError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("landgrid: no recorded values for variable %s in gridcell %d",
			e.Var, e.GridCell)
	}
	return fmt.Sprintf("landgrid: missing value for variable %s at %s %d in gridcell %d",
		e.Var, e.Level, e.Index, e.GridCell)
}
