// Package render rasterizes frame sequences with gonum/plot and encodes them
// as animated GIF or MP4.
package render

import (
	"errors"
	"fmt"
	"strings"
)

// Format is an animation container.
type Format string

const (
	GIF Format = "gif"
	MP4 Format = "mp4"
)

// ErrUnsupportedFormat is returned by ParseFormat for anything but gif or mp4.
var ErrUnsupportedFormat = errors.New("unsupported save format")

// ParseFormat accepts "gif" or "mp4", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case GIF, MP4:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}
