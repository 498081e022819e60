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
	"io"
	"text/tabwriter"
)

// A ColdStartEntry records one destination gridcell/variable pair that
// received its documented default during remap materialization instead
// of remapped source state.
type ColdStartEntry struct {
	GridCell int
	Var      string
	Reason   string
}

// A ColdStartReport lists every cold-started destination point from one
// remap operation, in ascending destination gridcell order. It is
// advisory: it is surfaced to the operator and never blocks the run.
type ColdStartReport struct {
	Entries []ColdStartEntry
}

// Len returns the number of cold-start entries.
func (r *ColdStartReport) Len() int { return len(r.Entries) }

// Table writes the report as an aligned text table.
func (r *ColdStartReport) Table(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "GridCell\tVariable\tReason")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.GridCell, e.Var, e.Reason)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("landgrid: writing cold-start report: %v", err)
	}
	return nil
}
