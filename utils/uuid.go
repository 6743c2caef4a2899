package utils

import "github.com/google/uuid"

// ShortID returns the first 8 hex characters of a random UUID, used to tag
// diagnostic bundles and snapshots.
func ShortID() string {
	return uuid.NewString()[:8]
}
