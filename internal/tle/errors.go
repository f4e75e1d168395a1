package tle

import (
	"fmt"
	"strconv"
)

// MalformedRecordError reports a TLE record that failed structural validation
// or had an unparseable numeric field.
type MalformedRecordError struct {
	Satellite string // name, NORAD id, or line position when neither is known
	Field     string // offending field, empty for structural failures
	Reason    string
	Err       error
}

func (e *MalformedRecordError) Error() string {
	msg := "malformed TLE record " + strconv.Quote(e.Satellite)
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func noradLabel(id int) string {
	return fmt.Sprintf("NORAD %d", id)
}

// satelliteLabel names a record for diagnostics before it is decoded.
func satelliteLabel(rec Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	if id, err := fieldNORADID.int(rec); err == nil {
		return noradLabel(id)
	}
	return fmt.Sprintf("line %d", rec.Index+1)
}
