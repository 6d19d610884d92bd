package tenants

import (
	"context"
	"errors"
)

// ErrNotInstalled is returned by Get for an unknown client key.
var ErrNotInstalled = errors.New("tenant not installed")

// Store is the tenant registry. Put overwrites any prior record for the same
// client key (re-install); Delete of an unknown key is a no-op.
type Store interface {
	Get(ctx context.Context, clientKey string) (Installation, error)
	Put(ctx context.Context, inst Installation) error
	Delete(ctx context.Context, clientKey string) error
	List(ctx context.Context) ([]Installation, error)
}
