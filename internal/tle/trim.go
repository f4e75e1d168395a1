package tle

import (
	"bufio"
	"bytes"
	"strings"
)

// Trim keeps the first n element sets of text, each either a name line plus
// two element lines or a bare pair. Lines belonging to neither shape are
// dropped. n <= 0 returns text unchanged.
func Trim(text []byte, n int) []byte {
	if n <= 0 {
		return text
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	isLine := func(i int, prefix string) bool {
		return i < len(lines) && strings.HasPrefix(lines[i], prefix)
	}

	var out []string
	for i, sets := 0, 0; i < len(lines) && sets < n; {
		switch {
		case !isLine(i, "1 ") && !isLine(i, "2 ") && isLine(i+1, "1 ") && isLine(i+2, "2 "):
			out = append(out, lines[i], lines[i+1], lines[i+2])
			i += 3
			sets++
		case isLine(i, "1 ") && isLine(i+1, "2 "):
			out = append(out, lines[i], lines[i+1])
			i += 2
			sets++
		default:
			i++
		}
	}
	return []byte(strings.Join(out, "\n"))
}
