// Package metrics holds the Prometheus collectors shared by the auth and
// server packages.
//
// Outcome labels are short fixed strings ("ok", "malformed", "invalid_signature",
// "expired", "not_found", ...) so cardinality stays bounded. No label ever
// carries user input.
package metrics
