package tle

import (
	"fmt"
	"strconv"
	"strings"
)

// field names a fixed-column slice [Start, End) of one TLE line.
type field struct {
	Name  string
	Line  int
	Start int
	End   int
}

// Column layout of the NORAD two-line element format (0-indexed, end exclusive).
var (
	fieldNORADID       = field{Name: "norad_id", Line: 1, Start: 2, End: 7}
	fieldEpochYear     = field{Name: "epoch_year", Line: 1, Start: 18, End: 20}
	fieldEpochDay      = field{Name: "epoch_day", Line: 1, Start: 20, End: 23}
	fieldEpochFraction = field{Name: "epoch_fraction", Line: 1, Start: 23, End: 32}

	fieldInclination  = field{Name: "inclination", Line: 2, Start: 8, End: 16}
	fieldRAAN         = field{Name: "raan", Line: 2, Start: 17, End: 25}
	fieldEccentricity = field{Name: "eccentricity", Line: 2, Start: 26, End: 33}
	fieldArgPerigee   = field{Name: "arg_perigee", Line: 2, Start: 34, End: 42}
	fieldMeanMotion   = field{Name: "mean_motion", Line: 2, Start: 52, End: 63}
)

// fields lists every column the decoder reads, in extraction order.
var fields = []field{
	fieldNORADID,
	fieldEpochYear,
	fieldEpochDay,
	fieldEpochFraction,
	fieldInclination,
	fieldRAAN,
	fieldEccentricity,
	fieldArgPerigee,
	fieldMeanMotion,
}

// minLineLength returns the shortest line that still holds every field of the given line.
func minLineLength(line int) int {
	n := 0
	for _, f := range fields {
		if f.Line == line && f.End > n {
			n = f.End
		}
	}
	return n
}

// extract returns the trimmed text of f from the record's matching line.
func (f field) extract(rec Record) (string, error) {
	line := rec.Line1
	if f.Line == 2 {
		line = rec.Line2
	}
	if len(line) < f.End {
		return "", fmt.Errorf("line %d has %d columns, %s needs %d", f.Line, len(line), f.Name, f.End)
	}
	return strings.TrimSpace(line[f.Start:f.End]), nil
}

func (f field) int(rec Record) (int, error) {
	s, err := f.extract(rec)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (f field) float(rec Record) (float64, error) {
	s, err := f.extract(rec)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
