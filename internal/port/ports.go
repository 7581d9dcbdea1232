// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/muellerb/shop-register-go/internal/domain"
)

// RegisterStore persists the register aggregate as one snapshot.
//
// Load returns *domain.ErrUninitialized when no snapshot exists.
// Save replaces the stored snapshot only if the given snapshot's
// Version matches the stored one; otherwise it returns
// *domain.ErrConflict. On success the store bumps Version on the
// passed snapshot so the caller holds the latest token.
type RegisterStore interface {
	Load(ctx context.Context) (*domain.RegisterSnapshot, error)
	Save(ctx context.Context, snapshot *domain.RegisterSnapshot) error
}

// MonthlyBiller is the external billing collaborator, invoked exactly
// once per month-boundary crossing during day advancement. The call is
// part of the advancement transaction: an error aborts the whole
// Closed→Open transition.
type MonthlyBiller interface {
	AddMonthlyCharges(ctx context.Context) error
}

// InventoryReleaser is the external inventory collaborator, invoked
// once per fulfilled pending order with the goods that arrived.
type InventoryReleaser interface {
	ReleaseGoods(ctx context.Context, items map[string]int) error
}

// WallClock supplies the real-world time. Injected so the business
// clock is testable with fixed instants.
type WallClock interface {
	Now() time.Time
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
