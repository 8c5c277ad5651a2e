package domain

import (
	"strconv"
	"strings"
)

// Fingerprint is the deduplication key for automatic analysis.
// Equal (query, ordered IDs) pairs always produce equal fingerprints, and
// distinct pairs never do.
type Fingerprint string

// NewFingerprint derives the fingerprint of a query and its ordered results.
// Every part is length-prefixed, so no query or ID can be mistaken for a
// separator.
func NewFingerprint(query string, results ResultSet) Fingerprint {
	var b strings.Builder
	writePart(&b, query)
	for _, id := range results.IDs() {
		b.WriteByte('|')
		writePart(&b, id)
	}
	return Fingerprint(b.String())
}

func writePart(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// String returns the string representation.
func (f Fingerprint) String() string {
	return string(f)
}

// IsZero reports whether no fingerprint has been recorded.
func (f Fingerprint) IsZero() bool {
	return f == ""
}
