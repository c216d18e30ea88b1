// Package parse implements the tolerant key/value grammar used by the chat
// flows, plus the strict date and time-of-day formats.
package parse

import (
	"strings"
	"time"
)

// KVLines splits text into lines and parses each as "key: value" or
// "key=value" (first separator wins). Lines matching neither form are
// dropped. Keys are lower-cased and trimmed; values are trimmed at the ends
// but keep internal whitespace. Duplicate keys keep the last value.
func KVLines(text string) map[string]string {
	data := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var k, v string
		if i := strings.Index(line, ":"); i >= 0 {
			k, v = line[:i], line[i+1:]
		} else if i := strings.Index(line, "="); i >= 0 {
			k, v = line[:i], line[i+1:]
		} else {
			continue
		}

		data[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return data
}

// Route splits a compound route value of the form "A - B" on the first dash.
// Both halves are trimmed. Returns ok=false when no dash is present.
func Route(route string) (from, to string, ok bool) {
	i := strings.Index(route, "-")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(route[:i]), strings.TrimSpace(route[i+1:]), true
}

// Date parses exactly YYYY-MM-DD. Any other input yields a zero time,
// meaning "caller did not specify a preference".
func Date(s string) time.Time {
	// time.Parse is lenient about zero padding; the wire format is not.
	if len(s) != len("2006-01-02") {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TimeOfDay validates exactly HH:MM (24-hour) and returns it normalized.
// Any other input yields "".
func TimeOfDay(s string) string {
	if len(s) != len("15:04") {
		return ""
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}

// Minutes converts a valid HH:MM string to minutes since midnight.
// Returns -1 for invalid input.
func Minutes(s string) int {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}
