package driven

import (
	"context"
	"time"
)

// DistributedLock elects one scheduler among several worker processes.
// Locks are named and expire on their own, so a crashed holder never
// blocks the others for longer than the TTL.
type DistributedLock interface {
	// Acquire takes name for ttl. False with a nil error means another
	// process holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives name up. Releasing a lock that has expired or was never
	// held is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a lock this process holds. Backends
	// without expiry treat it as a holder check.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
