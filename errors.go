package feecache

import "github.com/krisalay/feecache/location"

var (
	// ErrLocationPending is returned by GetFee when no coordinates were given
	// and the location source is still resolving. Retry once it resolves.
	ErrLocationPending = location.ErrLocationPending

	// ErrLocationUnavailable is re-exported so callers can match location
	// failures without importing the location package.
	ErrLocationUnavailable = location.ErrLocationUnavailable
)
