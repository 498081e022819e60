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
	"encoding/gob"
	"fmt"
	"io"
)

// snapshotField is the gob representation of a Field; the dense array
// is rebuilt on load because its dimension bookkeeping does not survive
// gob encoding.
type snapshotField struct {
	Elements []float64
	Present  []bool
}

type snapshot struct {
	Hierarchy *Hierarchy
	Snow      []SnowColumnState
	Patch     map[string]snapshotField
	Column    map[string]snapshotField
}

// Save writes h and s to w as a gob stream (format description at
// https://golang.org/pkg/encoding/gob/). The stream is the interchange
// format for initial-condition state: a saved run can be Loaded and
// remapped onto a different grid configuration.
func Save(w io.Writer, h *Hierarchy, s *State) error {
	snap := snapshot{
		Hierarchy: h,
		Snow:      s.Snow,
		Patch:     make(map[string]snapshotField, len(s.Values.Patch)),
		Column:    make(map[string]snapshotField, len(s.Values.Column)),
	}
	for name, f := range s.Values.Patch {
		snap.Patch[name] = snapshotField{Elements: f.Data.Elements, Present: f.Present}
	}
	for name, f := range s.Values.Column {
		snap.Column[name] = snapshotField{Elements: f.Data.Elements, Present: f.Present}
	}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("landgrid: encoding snapshot: %v", err)
	}
	return nil
}

// Load reads a hierarchy and its state from a gob stream previously
// written by Save, revalidating the hierarchy's weight invariants with
// the default tolerance.
func Load(r io.Reader) (*Hierarchy, *State, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("landgrid: decoding snapshot: %v", err)
	}
	h := snap.Hierarchy
	if err := h.Check(DefaultTolerance); err != nil {
		return nil, nil, err
	}
	if len(snap.Snow) != len(h.Columns) {
		return nil, nil, fmt.Errorf("landgrid: snapshot holds %d snow states for %d columns",
			len(snap.Snow), len(h.Columns))
	}
	for i := range snap.Snow {
		if err := snap.Snow[i].check(); err != nil {
			return nil, nil, err
		}
	}
	s := &State{Snow: snap.Snow, Values: NewValues()}
	for name, sf := range snap.Patch {
		if err := restoreField(s.Values.PatchField(name, h), sf, name); err != nil {
			return nil, nil, err
		}
	}
	for name, sf := range snap.Column {
		if err := restoreField(s.Values.ColumnField(name, h), sf, name); err != nil {
			return nil, nil, err
		}
	}
	return h, s, nil
}

func restoreField(f *Field, sf snapshotField, name string) error {
	if len(sf.Elements) != len(f.Data.Elements) || len(sf.Present) != len(f.Data.Elements) {
		return fmt.Errorf("landgrid: snapshot field %s has %d elements, hierarchy expects %d",
			name, len(sf.Elements), len(f.Data.Elements))
	}
	copy(f.Data.Elements, sf.Elements)
	copy(f.Present, sf.Present)
	return nil
}
