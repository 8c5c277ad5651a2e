// Package domain defines the core business entities for Movement Lens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Movement: A social-movement record returned by a search
//   - ResultSet: The ordered records of one search
//   - Fingerprint: The deduplication key of a (query, results) pair
//   - Message: A transcript entry with its lifecycle status
//   - StreamEvent: A decoded fragment, end or failure of an analysis stream
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
