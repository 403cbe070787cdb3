package challenge

import (
	"context"
	"time"
)

// DefaultTTL bounds how long an unconfirmed challenge stays valid.
const DefaultTTL = 1 * time.Hour

// Registry tracks the outstanding challenge per Roblox user id. At most one
// challenge is live per id; Put overwrites any prior entry, so starting a
// new handshake invalidates an abandoned one. Entries expire after a TTL.
//
// Read-modify-write on a single id must be atomic: CompareAndRemove is the
// consume step of the handshake, and exactly one of any number of
// concurrent callers holding the same challenge value may win it.
type Registry interface {
	Put(ctx context.Context, robloxID int64, challenge string) error

	// Get returns the outstanding challenge for the id, or
	// shared.ErrorNotFound when none is outstanding.
	Get(ctx context.Context, robloxID int64) (string, error)

	Remove(ctx context.Context, robloxID int64) error

	// CompareAndRemove removes the entry only if it still holds the given
	// challenge, reporting whether this caller consumed it.
	CompareAndRemove(ctx context.Context, robloxID int64, challenge string) (bool, error)
}
