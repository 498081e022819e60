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
	"reflect"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/landgrid"
)

const testConfig = "testdata/config.toml"

func TestReadSurface(t *testing.T) {
	h, state, err := ReadSurface(testConfig, 0)
	if err != nil {
		t.Fatal(err)
	}
	if h.NCells() != 1 {
		t.Fatalf("got %d gridcells, want 1", h.NCells())
	}
	if len(h.LandUnits) != 2 {
		t.Errorf("got %d land units, want 2", len(h.LandUnits))
	}
	if len(h.Columns) != 3 {
		t.Errorf("got %d columns, want 3", len(h.Columns))
	}
	if len(h.Patches) != 1 {
		t.Errorf("got %d patches, want 1", len(h.Patches))
	}
	if h.LandUnits[1].Kind != landgrid.UrbanHighDensity {
		t.Errorf("land unit 1 kind %v, want UrbanHighDensity", h.LandUnits[1].Kind)
	}
	if h.Columns[0].Role != landgrid.SoilColumn {
		t.Errorf("column 0 role %v, want Soil", h.Columns[0].Role)
	}
	if h.Columns[1].Role != landgrid.RoofColumn {
		t.Errorf("column 1 role %v, want Roof", h.Columns[1].Role)
	}
	if got := state.Snow[0].CoveredFraction; got != 0.5 {
		t.Errorf("column 0 snow-covered fraction %g, want 0.5", got)
	}
	if got := state.Snow[1].CoveredFraction; got != 0.8 {
		t.Errorf("column 1 snow-covered fraction %g, want 0.8", got)
	}

	if _, _, err := ReadSurface("testdata/nonexistent.toml", 0); err == nil {
		t.Error("missing surface dataset: expected an error")
	}
}

func TestVarRegistry(t *testing.T) {
	cfg := viper.New()
	cfg.SetConfigFile(testConfig)
	if err := cfg.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	reg, err := VarRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Frozen() {
		t.Error("registry is not frozen")
	}
	if got, want := reg.Vars(), []string{"FSA", "SNOWICE", "URBANT"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got variables %v, want %v", got, want)
	}
	rule, err := reg.Rule("SNOWICE")
	if err != nil {
		t.Fatal(err)
	}
	if rule.ColumnToLandUnit != landgrid.LayerMasked || rule.LandUnitToGridCell != landgrid.Unity {
		t.Errorf("SNOWICE rule %+v, want LayerMasked column scaling with Unity land unit scaling", rule)
	}
	rule, err = reg.Rule("URBANT")
	if err != nil {
		t.Fatal(err)
	}
	if rule.LandUnitToGridCell != landgrid.UrbanDensityWeighted || rule.ColdStartDefault != 283.15 {
		t.Errorf("URBANT rule %+v, want UrbanDensityWeighted with default 283.15", rule)
	}
}
