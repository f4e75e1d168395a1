package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/star/orbitviz/internal/metrics"
)

const (
	// Mu is Earth's gravitational parameter in km^3/s^2.
	Mu = 398600.4418

	// SiderealDayHours converts revolutions per day into an angular rate.
	SiderealDayHours = 23.93445

	// maxNameLength is the longest name line the format allows; longer lines
	// are treated as element lines.
	maxNameLength = 24
)

// Result is the outcome of decoding one record: either Elements or a
// non-nil Err describing why the record was skipped.
type Result struct {
	Record   Record
	Elements Elements
	Err      error
}

// OK reports whether the record decoded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Skip describes a record that was left out of a batch.
type Skip struct {
	Satellite string
	Index     int
	Err       error
}

// Batch collects the per-record results of a batch decode.
type Batch struct {
	Results []Result
	Decoded []Elements
	Skipped []Skip
}

// Segment splits TLE text into records. Both name+two-line triplets and bare
// two-line pairs are accepted; blank lines are ignored. Lines that fit neither
// shape are still returned as records so that decoding can report them.
//
// An element line starting with '1' always opens line 1 and one starting with
// '2' always fills line 2, so a record missing a line ends there instead of
// absorbing the next record's lines.
func Segment(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	type indexedLine struct {
		text  string
		index int
	}
	var lines []indexedLine
	for n := 0; scanner.Scan(); n++ {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, indexedLine{text: line, index: n})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	isElement := func(i int) bool {
		return i < len(lines) && len(lines[i].text) > maxNameLength
	}
	leads := func(i int, c byte) bool {
		return isElement(i) && lines[i].text[0] == c
	}

	var records []Record
	for i := 0; i < len(lines); {
		rec := Record{Index: lines[i].index}
		if !isElement(i) {
			rec.Name = strings.TrimSpace(lines[i].text)
			i++
		}
		// An element line with any other leading character is kept in the
		// record so Decode can report it.
		if isElement(i) && !leads(i, '2') {
			rec.Line1 = lines[i].text
			i++
		}
		if isElement(i) && !leads(i, '1') {
			rec.Line2 = lines[i].text
			i++
		}
		records = append(records, rec)
	}
	return records, nil
}

// Decode converts one record into orbital elements. It is a pure function of
// the record text and the reference time used to resolve two-digit years.
func Decode(rec Record, now time.Time) (Elements, error) {
	sat := satelliteLabel(rec)
	malformed := func(f field, reason string, err error) error {
		return &MalformedRecordError{Satellite: sat, Field: f.Name, Reason: reason, Err: err}
	}

	if rec.Line1 == "" || rec.Line2 == "" {
		return Elements{}, &MalformedRecordError{Satellite: sat, Reason: "record needs two element lines"}
	}
	if rec.Line1[0] != '1' {
		return Elements{}, &MalformedRecordError{Satellite: sat, Reason: fmt.Sprintf("line 1 must start with '1', got %q", rec.Line1[0])}
	}
	if rec.Line2[0] != '2' {
		return Elements{}, &MalformedRecordError{Satellite: sat, Reason: fmt.Sprintf("line 2 must start with '2', got %q", rec.Line2[0])}
	}

	id, err := fieldNORADID.int(rec)
	if err != nil {
		return Elements{}, malformed(fieldNORADID, "invalid catalog number", err)
	}

	epoch, err := decodeEpoch(rec, now)
	if err != nil {
		return Elements{}, &MalformedRecordError{Satellite: sat, Field: "epoch", Reason: "invalid epoch", Err: err}
	}

	ecc, err := decodeEccentricity(rec)
	if err != nil {
		return Elements{}, malformed(fieldEccentricity, "invalid eccentricity", err)
	}

	degrees := func(f field) (float64, error) {
		v, err := f.float(rec)
		if err != nil {
			return 0, malformed(f, "invalid angle", err)
		}
		return v * math.Pi / 180, nil
	}
	inc, err := degrees(fieldInclination)
	if err != nil {
		return Elements{}, err
	}
	raan, err := degrees(fieldRAAN)
	if err != nil {
		return Elements{}, err
	}
	argp, err := degrees(fieldArgPerigee)
	if err != nil {
		return Elements{}, err
	}

	n, err := fieldMeanMotion.float(rec)
	if err != nil {
		return Elements{}, malformed(fieldMeanMotion, "invalid mean motion", err)
	}
	if n <= 0 {
		return Elements{}, malformed(fieldMeanMotion, fmt.Sprintf("mean motion %g must be positive", n), nil)
	}

	return Elements{
		NORADID:       id,
		Name:          rec.Name,
		Epoch:         epoch,
		Eccentricity:  ecc,
		SemiMajorAxis: SemiMajorAxis(n),
		Inclination:   inc,
		RAAN:          raan,
		ArgPerigee:    argp,
		MeanMotion:    n,
	}, nil
}

// DecodeBatch decodes every record. Records that fail are logged and listed
// in Skipped; the batch itself never fails.
func DecodeBatch(records []Record, now time.Time, logger *slog.Logger) Batch {
	batch := Batch{Results: make([]Result, 0, len(records))}
	for _, rec := range records {
		el, err := Decode(rec, now)
		batch.Results = append(batch.Results, Result{Record: rec, Elements: el, Err: err})
		if err != nil {
			skip := Skip{Satellite: satelliteLabel(rec), Index: rec.Index, Err: err}
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				skip.Satellite = mre.Satellite
			}
			batch.Skipped = append(batch.Skipped, skip)
			logger.Warn("skipping malformed TLE entry",
				"satellite", skip.Satellite,
				"line_index", rec.Index,
				"error", err,
			)
			continue
		}
		batch.Decoded = append(batch.Decoded, el)
	}
	metrics.AddTLERecords(len(batch.Decoded), len(batch.Skipped))
	return batch
}

// Parse segments and decodes TLE text in one step.
func Parse(r io.Reader, now time.Time, logger *slog.Logger) (Batch, error) {
	records, err := Segment(r)
	if err != nil {
		return Batch{}, err
	}
	return DecodeBatch(records, now, logger), nil
}

// SemiMajorAxis converts a mean motion in revolutions per day to a
// semi-major axis in km.
func SemiMajorAxis(revPerDay float64) float64 {
	w := 2 * math.Pi * revPerDay / (SiderealDayHours * 3600)
	return math.Cbrt(Mu / (w * w))
}

// MeanMotion is the inverse of SemiMajorAxis.
func MeanMotion(semiMajorAxis float64) float64 {
	w := math.Sqrt(Mu / (semiMajorAxis * semiMajorAxis * semiMajorAxis))
	return w * SiderealDayHours * 3600 / (2 * math.Pi)
}

// decodeEccentricity reads the 7-digit significand with an implied leading "0.".
func decodeEccentricity(rec Record) (float64, error) {
	s, err := fieldEccentricity.extract(rec)
	if err != nil {
		return 0, err
	}
	if s == "" || strings.ContainsAny(s, ".+-eE") {
		return 0, fmt.Errorf("significand %q is not a digit string", s)
	}
	return strconv.ParseFloat("0."+s, 64)
}

// decodeEpoch builds the epoch timestamp from the two-digit year, the day of
// year and the fraction of day. Hours, minutes and seconds are obtained by
// successive multiplication and truncation, so sub-second precision is dropped.
func decodeEpoch(rec Record, now time.Time) (time.Time, error) {
	yy, err := fieldEpochYear.int(rec)
	if err != nil {
		return time.Time{}, fmt.Errorf("year: %w", err)
	}
	day, err := fieldEpochDay.int(rec)
	if err != nil {
		return time.Time{}, fmt.Errorf("day of year: %w", err)
	}
	if day < 1 || day > 366 {
		return time.Time{}, fmt.Errorf("day of year %d out of range", day)
	}
	frac, err := fieldEpochFraction.float(rec)
	if err != nil {
		return time.Time{}, fmt.Errorf("fraction of day: %w", err)
	}
	if frac < 0 || frac >= 1 {
		return time.Time{}, fmt.Errorf("fraction of day %g out of range", frac)
	}

	hours := 24 * frac
	hour := math.Trunc(hours)
	minutes := (hours - hour) * 60
	minute := math.Trunc(minutes)
	second := math.Trunc((minutes - minute) * 60)

	year := yearPrefix(yy, now) + yy
	return time.Date(year, time.January, day, int(hour), int(minute), int(second), 0, time.UTC), nil
}

// yearPrefix resolves a two-digit epoch year against now: years greater than
// the current two-digit year belong to the 1900s, all others to the 2000s.
// The window rolls with the clock: a record older than the window decodes into
// the wrong century.
func yearPrefix(yy int, now time.Time) int {
	if yy > now.Year()%100 {
		return 1900
	}
	return 2000
}
