package web

import "embed"

// Content holds the embedded index page (index.html) and the default TLE
// dataset (tle.txt).
//
//go:embed index.html tle.txt
var Content embed.FS

// DefaultTLE is the name of the embedded default dataset inside Content.
const DefaultTLE = "tle.txt"
