package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/port"
)

// ClaimRequest is a user's request for part of an item's remaining stock.
type ClaimRequest struct {
	ItemID   int64  `json:"lostItemId" validate:"required,gt=0"`
	Quantity int    `json:"claimedQuantity" validate:"required,min=1"`
	Note     string `json:"notes" validate:"max=1000"`
}

type ClaimService struct {
	tx     port.Transactor
	users  port.UserRepository
	items  port.ItemRepository
	claims port.ClaimRepository
	guard  port.ClaimGuard
	logger *zap.Logger
	now    func() time.Time
}

// NewClaimService wires the claim workflow. guard may be nil, in which case
// only the database constraints protect against duplicate submissions.
func NewClaimService(
	tx port.Transactor,
	users port.UserRepository,
	items port.ItemRepository,
	claims port.ClaimRepository,
	guard port.ClaimGuard,
	logger *zap.Logger,
) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		tx:     tx,
		users:  users,
		items:  items,
		claims: claims,
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// CreateClaim reserves req.Quantity units of an item for username. Every step
// runs in one transaction, so a failure after the stock decrement leaves the
// item untouched. The submission guard is taken once user and item are known.
func (s *ClaimService) CreateClaim(ctx context.Context, username string, req ClaimRequest) (domain.ClaimView, error) {
	log := s.logger.With(zap.String("username", username), zap.Int64("item_id", req.ItemID))

	// released only after the transaction has committed or rolled back
	release := func() {}
	defer func() { release() }()

	var view domain.ClaimView
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
		}

		item, err := s.items.GetItem(ctx, req.ItemID)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, req.ItemID)
		}

		unlock, err := s.acquireGuard(ctx, username, item.ID)
		if err != nil {
			return err
		}
		release = unlock

		exists, err := s.claims.ExistsClaim(ctx, user.ID, item.ID)
		if err != nil {
			return fmt.Errorf("check existing claim: %w", err)
		}
		if exists {
			return domain.ErrDuplicateClaim
		}

		available := item.RemainingQuantity
		if !item.AttemptClaim(req.Quantity) {
			return fmt.Errorf("%w: Requested: %d, Available: %d",
				domain.ErrInsufficientQuantity, req.Quantity, available)
		}

		item.UpdatedAt = s.now()
		if err := s.items.UpdateItem(ctx, item); err != nil {
			return err
		}

		claim, err := s.claims.CreateClaim(ctx, domain.Claim{
			UserID:    user.ID,
			ItemID:    item.ID,
			Quantity:  req.Quantity,
			Status:    domain.ClaimStatusPending,
			ClaimDate: s.now(),
			Note:      req.Note,
		})
		if err != nil {
			return err
		}

		view = domain.NewClaimView(claim, *user, *item)
		return nil
	})
	if err != nil {
		log.Warn("claim rejected", zap.Int("quantity", req.Quantity), zap.Error(err))
		return domain.ClaimView{}, err
	}

	log.Info("claim created",
		zap.Int64("claim_id", view.ID),
		zap.Int("quantity", view.Quantity),
		zap.String("item_name", view.ItemName))
	return view, nil
}

// acquireGuard takes the per user and item submission lock. Guard outages are
// logged and ignored; the unique index on claims still holds.
func (s *ClaimService) acquireGuard(ctx context.Context, username string, itemID int64) (func(), error) {
	noop := func() {}
	if s.guard == nil {
		return noop, nil
	}

	key := fmt.Sprintf("claim:%s:%d", username, itemID)
	token := uuid.NewString()

	ok, err := s.guard.AcquireLock(ctx, key, token)
	if err != nil {
		s.logger.Warn("claim guard unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: claim already in progress", domain.ErrDuplicateClaim)
	}

	return func() {
		// the request ctx may already be cancelled
		if err := s.guard.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("failed to release claim guard", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// ListClaims returns claims in insertion order unless req sorts otherwise.
func (s *ClaimService) ListClaims(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ClaimView], error) {
	if err := req.Validate(domain.ClaimSortFields); err != nil {
		return domain.Page[domain.ClaimView]{}, err
	}
	page, err := s.claims.ListClaims(ctx, req)
	if err != nil {
		return domain.Page[domain.ClaimView]{}, fmt.Errorf("list claims: %w", err)
	}
	return page, nil
}

// IsClientError reports whether err is one of the domain outcomes a caller
// can act on, as opposed to an infrastructure failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		domain.ErrUserNotFound,
		domain.ErrItemNotFound,
		domain.ErrClaimNotFound,
		domain.ErrInvalidOperation,
		domain.ErrInsufficientQuantity,
		domain.ErrConcurrentModification,
		domain.ErrFileParsing,
		domain.ErrUnsupportedFileType,
		domain.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
