package port

import (
	"context"

	"github.com/rl1809/lost-found/internal/core/domain"
)

// Transactor runs fn as one unit of work. Repositories called with the ctx
// handed to fn join the transaction; it commits when fn returns nil and rolls
// back on error or panic.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ItemRepository interface {
	// GetItem returns nil when no item has the given id
	GetItem(ctx context.Context, id int64) (*domain.Item, error)

	// UpdateItem writes remaining stock only if the stored version still equals
	// item.Version, otherwise domain.ErrConcurrentModification. On success the
	// item's version is advanced.
	UpdateItem(ctx context.Context, item *domain.Item) error

	// CreateItems inserts new items and returns them with ids assigned
	CreateItems(ctx context.Context, items []domain.Item) ([]domain.Item, error)

	ListAvailableItems(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Item], error)
}

type ClaimRepository interface {
	ExistsClaim(ctx context.Context, userID, itemID int64) (bool, error)

	// CreateClaim fails with domain.ErrDuplicateClaim when the (user, item)
	// pair is already taken
	CreateClaim(ctx context.Context, claim domain.Claim) (domain.Claim, error)

	ListClaims(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ClaimView], error)
}

type UserRepository interface {
	// GetUserByUsername returns nil when the username is unknown
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetUserByID returns nil when the id is unknown
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
}
