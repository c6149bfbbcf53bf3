// Package strscan extracts runs of printable ASCII text from raw bytes.
package strscan

import "unicode/utf8"

// DefaultMinLength is the shortest run reported by the command line tool.
const DefaultMinLength = 4

// IsPrintable reports whether b may appear inside an extracted string:
// tab, newline, carriage return or printable ASCII.
func IsPrintable(b byte) bool {
	switch b {
	case '\t', '\n', '\r':
		return true
	}
	return b >= 0x20 && b <= 0x7e
}

// Extract scans data once and returns every maximal printable run of at
// least minLen bytes, in the order the runs appear. Runs that are not valid
// UTF-8 are dropped.
func Extract(data []byte, minLen int) []string {
	var out []string
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		run := data[start:end]
		start = -1
		if len(run) < minLen || !utf8.Valid(run) {
			return
		}
		out = append(out, string(run))
	}

	for i, b := range data {
		if IsPrintable(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))

	return out
}
