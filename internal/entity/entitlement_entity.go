package entity

import "time"

// Entitlement mirrors the user's premium flag as last fetched from the
// account backend. Defaults to non-premium while unresolved.
type Entitlement struct {
	IsPremium bool
	Loading   bool
	FetchedAt time.Time
}
