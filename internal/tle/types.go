package tle

import "time"

// Record is one satellite's raw element set: an optional name line and the
// two fixed-column element lines.
type Record struct {
	Name  string
	Line1 string
	Line2 string

	// Index is the position of the record's first line in the source text.
	Index int
}

// Elements holds the classical orbital elements decoded from a Record.
// Angles are in radians, the semi-major axis in km.
type Elements struct {
	NORADID       int
	Name          string
	Epoch         time.Time
	Eccentricity  float64
	SemiMajorAxis float64
	Inclination   float64
	RAAN          float64
	ArgPerigee    float64
	MeanMotion    float64 // revolutions per day
}

// Label returns the name used in diagnostics and legends.
func (e Elements) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return noradLabel(e.NORADID)
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a decoded TLE text together with its provenance.
type Dataset struct {
	Source     string
	LoadedAt   time.Time
	EpochRange EpochRange
	Raw        []byte
	Batch      Batch
}

// NewDataset builds a Dataset from a decoded batch.
func NewDataset(source string, raw []byte, batch Batch, loadedAt time.Time) *Dataset {
	ds := &Dataset{
		Source:   source,
		LoadedAt: loadedAt,
		Raw:      raw,
		Batch:    batch,
	}
	for i, el := range batch.Decoded {
		if i == 0 || el.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = el.Epoch
		}
		if i == 0 || el.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = el.Epoch
		}
	}
	return ds
}
