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

// Package landgridutil holds the configuration and command wiring for
// the landgrid command-line interface.
package landgridutil

import (
	"fmt"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger *logrus.Logger

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	// Options are the configuration options available to landgrid.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SurfaceFile",
			usage: `
              SurfaceFile is the path to the TOML surface dataset
              describing the gridcell/land unit/column/patch topology
              and weights.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{checkCmd.Flags(), remapCmd.Flags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to a gob snapshot holding the
              hierarchy and state to aggregate.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{aggCmd.Flags()},
		},
		{
			name: "SourceFile",
			usage: `
              SourceFile is the path to the gob snapshot holding the
              saved source hierarchy and state for remapping.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the destination path: a text table of
              gridcell values for agg, or a gob snapshot of the
              remapped initial state for remap. Empty writes the agg
              table to standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{aggCmd.Flags(), remapCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables lists the variables to aggregate. Empty
              aggregates every registered variable.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{aggCmd.Flags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the allowed deviation from 1 of the subgrid
              weight sums at each hierarchy level.`,
			defaultVal: 1.e-10,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RemapSearchRadius",
			usage: `
              RemapSearchRadius is the maximum great-circle distance [m]
              to search for a matching source gridcell when remapping.`,
			defaultVal: 500000.0,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LANDGRID")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(aggCmd)
	Root.AddCommand(remapCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("landgrid: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "landgrid",
	Short: "A subgrid aggregation and state remapping engine for land-surface models.",
	Long: `landgrid reduces patch- and column-level land model fields to gridcell
values for coupler exchange, and remaps saved state between grid and
subgrid configurations for initial-condition construction.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LANDGRID_var' where 'var'
is the name of the variable to be set. The scale-type registry (the
'Variables' table) can only be specified in the configuration file.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of landgrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("landgrid v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// checkCmd validates a surface dataset and variable registry without
// running anything.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the surface dataset and variable registry.",
	Long: `check constructs the subgrid hierarchy from the surface dataset and the
scale-type registry from the configuration file, reporting any weight-sum
inconsistency or invalid rule and exiting nonzero if either is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Check(Cfg.GetString("SurfaceFile"), Cfg.GetFloat64("Tolerance"), Cfg)
	},
	DisableAutoGenTag: true,
}

// aggCmd aggregates a snapshot's state to gridcell values.
var aggCmd = &cobra.Command{
	Use:   "agg",
	Short: "Aggregate state to gridcell values.",
	Long: `agg loads a hierarchy and state snapshot, aggregates the requested
variables to one value per gridcell according to their registered scale
types, and writes the result as a text table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Agg(
			Cfg.GetString("InputFile"),
			Cfg.GetString("OutputFile"),
			Cfg.GetStringSlice("OutputVariables"),
			Cfg)
	},
	DisableAutoGenTag: true,
}

// remapCmd remaps saved state onto a new grid configuration.
var remapCmd = &cobra.Command{
	Use:   "remap",
	Short: "Remap saved state onto a new grid configuration.",
	Long: `remap builds the destination hierarchy from the surface dataset, matches
each destination subgrid node to the nearest compatible node of the saved
source snapshot, materializes the destination initial state, writes it as
a gob snapshot, and prints the cold-start report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Remap(
			Cfg.GetString("SourceFile"),
			Cfg.GetString("SurfaceFile"),
			Cfg.GetString("OutputFile"),
			Cfg.GetFloat64("RemapSearchRadius"),
			Cfg.GetFloat64("Tolerance"),
			Cfg)
	},
	DisableAutoGenTag: true,
}
