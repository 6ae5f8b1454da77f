package port

import (
	"context"
	"time"
)

type LockRepository interface {
	// AcquireLock sets the key to owner if absent, returns false if someone already holds it
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes the key only while it still belongs to owner
	ReleaseLock(ctx context.Context, key, owner string) error
}

// TokenStore holds the carrier bearer token. An empty token means
// unauthenticated.
type TokenStore interface {
	Token(ctx context.Context) (string, error)

	SetToken(ctx context.Context, token string) error

	// InvalidateToken clears the token only while it still equals stale
	InvalidateToken(ctx context.Context, stale string) error
}
