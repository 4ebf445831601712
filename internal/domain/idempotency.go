package domain

import "time"

// IdempotencyRecord maps a client-supplied key plus request path to the
// stored outcome of the first successful execution. A record is created on
// first sight of the key, written once more when the outcome is stored, and
// otherwise read-only until time-based expiry removes it.
type IdempotencyRecord struct {
	Key        string
	Path       string
	StatusCode int
	Response   []byte
	Completed  bool
	CreatedAt  time.Time
}

// DefaultIdempotencyTTL is how long a key stays valid after creation.
// Expiry never retroactively invalidates outcomes already returned.
const DefaultIdempotencyTTL = 7 * 24 * time.Hour
