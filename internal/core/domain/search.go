package domain

// SearchOutcome reports how a submitted search resolved.
type SearchOutcome struct {
	// Generation identifies the submit that produced this outcome.
	Generation uint64

	// Query is the submitted query.
	Query string

	// Results is the result set. Empty on failure or when stale.
	Results ResultSet

	// Stale is true when a newer submit superseded this one before it resolved.
	// Stale results are never presented or published.
	Stale bool

	// Duplicate is true when the results matched the already presented set.
	Duplicate bool

	// Err holds the failure, if any. Failures degrade to an empty result set.
	Err error
}

// Accepted reports whether the outcome became the current result set.
func (o SearchOutcome) Accepted() bool {
	return !o.Stale && o.Err == nil
}

// DefaultTopLimit is the number of records returned by the dataset for a search.
const DefaultTopLimit = 20
