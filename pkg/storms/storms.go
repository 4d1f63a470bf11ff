// Package storms loads design-storm tables: precipitation depths indexed by
// return period and duration.
//
// A table is the standard product of an intensity-duration-frequency
// analysis: one row per storm duration, one column per return period, each
// cell a precipitation depth in millimeters. The evaluation pipeline sweeps
// the accumulator across such a table to characterize a subcatchment's
// runoff response.
//
// # File Format
//
// Tables are stored as TOML:
//
//	return_periods = [1, 3, 5, 10, 30, 100]   # years
//	durations = [10, 30, 60, 180, 360, 1440]  # minutes
//
//	# one row per duration, one column per return period, depths in mm
//	depths = [
//	    [9.6, 12.5, 14.1, 16.4, 19.9, 24.1],
//	    [14.0, 18.9, 21.5, 25.3, 31.2, 38.5],
//	    ...
//	]
package storms

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/perisponge/stormflow/pkg/errors"
)

// Table holds precipitation depths for a grid of design storms.
// Depths[i][j] is the depth in millimeters for Durations[i] and
// ReturnPeriods[j].
type Table struct {
	ReturnPeriods []float64   `toml:"return_periods" json:"return_periods"` // years
	Durations     []float64   `toml:"durations" json:"durations"`           // minutes
	Depths        [][]float64 `toml:"depths" json:"depths"`                 // millimeters
}

// Load reads a design-storm table from a TOML file and validates its
// dimensions.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read storm table %s", path)
	}
	return Parse(data)
}

// Parse decodes a design-storm table from TOML bytes and validates its
// dimensions.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTable, err, "decode storm table")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that the depth matrix matches the axis lengths.
func (t *Table) Validate() error {
	if len(t.ReturnPeriods) == 0 {
		return errors.New(errors.ErrCodeInvalidTable, "no return periods")
	}
	if len(t.Durations) == 0 {
		return errors.New(errors.ErrCodeInvalidTable, "no durations")
	}
	if len(t.Depths) != len(t.Durations) {
		return errors.New(errors.ErrCodeInvalidTable,
			"depth rows %d do not match %d durations", len(t.Depths), len(t.Durations))
	}
	for i, row := range t.Depths {
		if len(row) != len(t.ReturnPeriods) {
			return errors.New(errors.ErrCodeInvalidTable,
				"depth row %d has %d columns, want %d", i, len(row), len(t.ReturnPeriods))
		}
	}
	return nil
}

// Depth returns the precipitation depth for the given duration and return
// period indices.
func (t *Table) Depth(durationIdx, periodIdx int) float64 {
	return t.Depths[durationIdx][periodIdx]
}

// Size returns the number of durations and return periods.
func (t *Table) Size() (durations, periods int) {
	return len(t.Durations), len(t.ReturnPeriods)
}
