package domain

import "context"

// LockPort is the lock surface used by the orchestrator and the console
type LockPort interface {
	Acquire(ctx context.Context, req Request) (Lease, error)
	Release(ctx context.Context, resource, lockID, owner string) (bool, error)
	AcquireAll(ctx context.Context, resources []string, req Request) ([]Lease, error)
	Inspect(ctx context.Context, resource string) (State, error)
	ReleaseOwnedBy(ctx context.Context, resource, owner string) (bool, error)
}
