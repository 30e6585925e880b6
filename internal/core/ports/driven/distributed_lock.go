package driven

import (
	"context"
	"time"
)

// DistributedLock serialises ingestion and deletion of the same document
// across server instances.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false without error when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops the lock if this instance holds it.
	// Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
