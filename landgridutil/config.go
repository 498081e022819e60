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

package landgridutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/landgrid"
	"github.com/spf13/cast"
)

// The surface* types mirror the TOML surface dataset layout: nested
// [[GridCell]], [[GridCell.LandUnit]], [[GridCell.LandUnit.Column]],
// and [[GridCell.LandUnit.Column.Patch]] tables.
type surfaceFile struct {
	GridCell []surfaceCell
}

type surfaceCell struct {
	Lon, Lat float64
	Area     float64
	LandUnit []surfaceLandUnit
}

type surfaceLandUnit struct {
	Kind   string
	Weight float64
	Column []surfaceColumn
}

type surfaceColumn struct {
	Role                string
	Weight              float64
	SnowCoveredFraction float64
	Patch               []surfacePatch
}

type surfacePatch struct {
	PFT    int
	Weight float64
}

// ReadSurface reads the TOML surface dataset at filename and constructs
// the subgrid hierarchy and its initial (snow-free) state. An empty
// column role means Soil.
func ReadSurface(filename string, tolerance float64) (*landgrid.Hierarchy, *landgrid.State, error) {
	f, err := os.Open(os.ExpandEnv(filename))
	if err != nil {
		return nil, nil, fmt.Errorf("landgrid: opening surface dataset: %v", err)
	}
	defer f.Close()
	var sf surfaceFile
	if _, err := toml.DecodeReader(f, &sf); err != nil {
		return nil, nil, fmt.Errorf("landgrid: parsing surface dataset %s: %v", filename, err)
	}
	cells := make([]landgrid.GridCellSpec, len(sf.GridCell))
	for i, c := range sf.GridCell {
		cell := landgrid.GridCellSpec{
			Centroid: geom.Point{X: c.Lon, Y: c.Lat},
			Area:     c.Area,
		}
		for _, lu := range c.LandUnit {
			kind, err := landgrid.ParseLandUnitKind(lu.Kind)
			if err != nil {
				return nil, nil, err
			}
			luSpec := landgrid.LandUnitSpec{Kind: kind, Weight: lu.Weight}
			for _, col := range lu.Column {
				role := landgrid.SoilColumn
				if col.Role != "" {
					role, err = landgrid.ParseColumnRole(col.Role)
					if err != nil {
						return nil, nil, err
					}
				}
				snow := landgrid.NewSnowColumnState()
				snow.CoveredFraction = col.SnowCoveredFraction
				colSpec := landgrid.ColumnSpec{Role: role, Weight: col.Weight, Snow: &snow}
				for _, p := range col.Patch {
					colSpec.Patches = append(colSpec.Patches, landgrid.PatchSpec{
						PFT:    p.PFT,
						Weight: p.Weight,
					})
				}
				luSpec.Columns = append(luSpec.Columns, colSpec)
			}
			cell.LandUnits = append(cell.LandUnits, luSpec)
		}
		cells[i] = cell
	}
	h, s, err := landgrid.NewHierarchy(cells, tolerance)
	if err != nil {
		return nil, nil, err
	}
	return h, s, nil
}

// VarRegistry builds the scale-type registry from the 'Variables' table
// of the configuration file:
//
//	[Variables.SNOWICE]
//	ColumnToLandUnit = "LayerMasked"
//	LandUnitToGridCell = "Unity"
//	ColdStartDefault = 0.0
//
// Variable names are canonicalized to upper case because viper lowers
// configuration keys. The returned registry is frozen.
func VarRegistry(cfg *viper.Viper) (*landgrid.Registry, error) {
	raw := cfg.Get("Variables")
	if raw == nil {
		return nil, fmt.Errorf("landgrid: the configuration file specifies no Variables table")
	}
	vars, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("landgrid: parsing Variables table: %v", err)
	}
	reg := landgrid.NewRegistry()
	for name, rawRule := range vars {
		rawFields, err := cast.ToStringMapE(rawRule)
		if err != nil {
			return nil, fmt.Errorf("landgrid: parsing Variables.%s: %v", name, err)
		}
		// viper lowers top-level keys but keys inside nested tables
		// keep their TOML case.
		fields := make(map[string]interface{}, len(rawFields))
		for k, v := range rawFields {
			fields[strings.ToLower(k)] = v
		}
		colToLU, err := parseRuleField(fields, "ColumnToLandUnit", name)
		if err != nil {
			return nil, err
		}
		luToGC, err := parseRuleField(fields, "LandUnitToGridCell", name)
		if err != nil {
			return nil, err
		}
		def, err := cast.ToFloat64E(fields["coldstartdefault"])
		if err != nil {
			return nil, fmt.Errorf("landgrid: parsing Variables.%s.ColdStartDefault: %v", name, err)
		}
		if err := reg.Register(strings.ToUpper(name), colToLU, luToGC, def); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg, nil
}

func parseRuleField(fields map[string]interface{}, key, varName string) (landgrid.ScaleType, error) {
	s, err := cast.ToStringE(fields[strings.ToLower(key)])
	if err != nil {
		return 0, fmt.Errorf("landgrid: parsing Variables.%s.%s: %v", varName, key, err)
	}
	st, err := landgrid.ParseScaleType(s)
	if err != nil {
		return 0, fmt.Errorf("landgrid: Variables.%s: %v", varName, err)
	}
	return st, nil
}
