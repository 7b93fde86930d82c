package cookie

import (
	"net/http"
	"sort"
	"strings"
)

// HeaderName is the only header inspected for cookies. Matching is exact.
const HeaderName = "Cookie"

// Jar maps cookie name to cookie value for a single request.
type Jar map[string]string

// Get returns the value for name and whether it was present.
func (j Jar) Get(name string) (string, bool) {
	if j == nil {
		return "", false
	}
	v, ok := j[name]
	return v, ok
}

// Parse builds a Jar from a flat [name0, value0, name1, value1, ...] header
// list. A trailing name without a value is ignored. Every Cookie entry is
// merged in order, so later duplicates override earlier ones.
func Parse(raw []string) Jar {
	jar := Jar{}
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] != HeaderName {
			continue
		}
		parseInto(jar, raw[i+1])
	}
	return jar
}

func parseInto(jar Jar, header string) {
	if header == "" {
		return
	}
	for _, segment := range strings.Split(header, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, _ := strings.Cut(segment, "=")
		jar[name] = value
	}
}

// RawHeaders flattens h into the interleaved list Parse consumes. Header
// names are emitted in sorted order so the result is deterministic.
func RawHeaders(h http.Header) []string {
	names := make([]string, 0, len(h))
	total := 0
	for name, values := range h {
		names = append(names, name)
		total += len(values)
	}
	sort.Strings(names)

	raw := make([]string, 0, total*2)
	for _, name := range names {
		for _, v := range h[name] {
			raw = append(raw, name, v)
		}
	}
	return raw
}

// FromRequest parses the cookies of r.
func FromRequest(r *http.Request) Jar {
	if r == nil {
		return Jar{}
	}
	return Parse(RawHeaders(r.Header))
}
