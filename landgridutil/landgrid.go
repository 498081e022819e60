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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/landgrid"
)

// Version is the version of this program.
const Version = landgrid.Version

// Check constructs the hierarchy from the surface dataset and the
// registry from the configuration, reporting success or returning the
// first structural error.
func Check(surfaceFile string, tolerance float64, cfg *viper.Viper) error {
	h, _, err := ReadSurface(surfaceFile, tolerance)
	if err != nil {
		return err
	}
	reg, err := VarRegistry(cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"gridcells": h.NCells(),
		"landunits": len(h.LandUnits),
		"columns":   len(h.Columns),
		"patches":   len(h.Patches),
		"variables": len(reg.Vars()),
	}).Info("surface dataset and variable registry are consistent")
	return nil
}

// Agg loads the snapshot at inputFile, aggregates the requested
// variables (all registered variables if varNames is empty), and writes
// the gridcell values as a text table to outputFile, or to standard
// output if outputFile is empty.
func Agg(inputFile, outputFile string, varNames []string, cfg *viper.Viper) error {
	f, err := os.Open(os.ExpandEnv(inputFile))
	if err != nil {
		return fmt.Errorf("landgrid: opening snapshot: %v", err)
	}
	defer f.Close()
	h, state, err := landgrid.Load(f)
	if err != nil {
		return err
	}
	reg, err := VarRegistry(cfg)
	if err != nil {
		return err
	}
	// Registered names are upper case; accept any case from the
	// configuration or command line.
	for i, name := range varNames {
		varNames[i] = strings.ToUpper(name)
	}
	if len(varNames) == 0 {
		varNames = reg.Vars()
	}
	agg, err := landgrid.NewAggregator(h, reg)
	if err != nil {
		return err
	}
	results, err := agg.Aggregate(context.Background(), state, varNames)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		out, err := os.Create(os.ExpandEnv(outputFile))
		if err != nil {
			return fmt.Errorf("landgrid: creating output file: %v", err)
		}
		defer out.Close()
		w = out
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprint(tw, "GridCell")
	for _, name := range varNames {
		fmt.Fprintf(tw, "\t%s", name)
	}
	fmt.Fprintln(tw)
	for c := 0; c < h.NCells(); c++ {
		fmt.Fprintf(tw, "%d", c)
		for _, name := range varNames {
			fmt.Fprintf(tw, "\t%g", results[name].Get(c))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("landgrid: writing aggregation table: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"gridcells": h.NCells(),
		"variables": len(varNames),
	}).Info("aggregation finished")
	return nil
}

// Remap loads the saved source snapshot, builds the destination
// hierarchy from the surface dataset, remaps the source state onto it,
// writes the destination snapshot to outputFile, and prints the
// cold-start report to standard output.
func Remap(sourceFile, surfaceFile, outputFile string, searchRadius, tolerance float64, cfg *viper.Viper) error {
	sf, err := os.Open(os.ExpandEnv(sourceFile))
	if err != nil {
		return fmt.Errorf("landgrid: opening source snapshot: %v", err)
	}
	defer sf.Close()
	src, srcState, err := landgrid.Load(sf)
	if err != nil {
		return err
	}
	dst, _, err := ReadSurface(surfaceFile, tolerance)
	if err != nil {
		return err
	}
	reg, err := VarRegistry(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	corr, err := landgrid.BuildCorrespondence(ctx, src, dst, landgrid.RemapConfig{SearchRadius: searchRadius})
	if err != nil {
		return err
	}
	dstState, report, err := corr.Materialize(ctx, srcState, reg)
	if err != nil {
		return err
	}

	out, err := os.Create(os.ExpandEnv(outputFile))
	if err != nil {
		return fmt.Errorf("landgrid: creating output snapshot: %v", err)
	}
	defer out.Close()
	if err := landgrid.Save(out, dst, dstState); err != nil {
		return err
	}

	// The report is advisory: it is always surfaced, never blocks.
	if report.Len() > 0 {
		logger.WithField("entries", report.Len()).Warn("some destination points were cold-started")
		if err := report.Table(os.Stdout); err != nil {
			return err
		}
	} else {
		logger.Info("all destination points matched source state")
	}
	return nil
}
