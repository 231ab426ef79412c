// Package naming validates event names and normalizes category labels.
package naming

import (
	"strconv"
	"strings"
)

// DefaultCategory is the category events land in when neither the call
// site nor the registry supplies one.
const DefaultCategory = "_events"

// NamespaceSeparator splits fully-qualified type names used as category
// or name arguments; only the final segment is kept.
const NamespaceSeparator = '\\'

// ValidName reports whether raw is usable as an event name: non-empty,
// made of ASCII letters, digits and the punctuation set \ / : . - _
func ValidName(raw string) bool {
	if raw == "" {
		return false
	}
	for _, r := range raw {
		if !validRune(r) {
			return false
		}
	}
	return true
}

func validRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '\\', '/', ':', '.', '-', '_':
		return true
	}
	return false
}

// MustName returns raw unchanged after asserting it is a valid event
// name. A malformed name is a programming error at the call site and
// panics; callers holding untrusted input validate with ValidName first.
func MustName(raw string) string {
	if !ValidName(raw) {
		panic("profiler: invalid event name " + strconv.Quote(raw))
	}
	return raw
}

// Category normalizes a raw category label. A namespaced value such as
// "App\Jobs\Mailer" collapses to its final segment, lower-cased. Empty
// input stays empty so the caller can apply its default.
func Category(raw string) string {
	return strings.ToLower(LastSegment(raw))
}

// LastSegment returns the text after the final namespace separator, or
// raw itself when none is present.
func LastSegment(raw string) string {
	if i := strings.LastIndexByte(raw, NamespaceSeparator); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// Namespaced reports whether raw contains a namespace separator.
func Namespaced(raw string) bool {
	return strings.IndexByte(raw, NamespaceSeparator) >= 0
}
