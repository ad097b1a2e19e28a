package session

import (
	"context"
	"time"
)

// Store is a per-session key/value store. sid is the keyed hash of the
// browser session id, never the raw cookie value.
type Store interface {
	// Get returns the value for key.
	// POST: ok is false when the key is absent
	Get(ctx context.Context, sid, key string) (value string, ok bool, err error)

	// All returns every key stored for sid.
	// POST: an unknown session yields an empty map
	All(ctx context.Context, sid string) (map[string]string, error)

	// Set writes value under key, refreshing the session's idle clock.
	Set(ctx context.Context, sid, key, value string) error

	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, sid, key string) error

	// Purge drops sessions not written since idleBefore and reports how
	// many rows went away. Backends with native expiry return 0.
	Purge(ctx context.Context, idleBefore time.Time) (int64, error)
}
