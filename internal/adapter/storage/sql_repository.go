package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/lost-found/internal/core/domain"
)

func (a *SQLAdapter) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var m itemModel
	err := a.conn(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", translateError(err))
	}
	item := m.toDomain()
	return &item, nil
}

func (a *SQLAdapter) UpdateItem(ctx context.Context, item *domain.Item) error {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	result := a.conn(ctx).Model(&itemModel{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]any{
			"remaining_quantity": item.RemainingQuantity,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update item: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d was updated by another transaction", domain.ErrConcurrentModification, item.ID)
	}

	item.Version++
	item.UpdatedAt = updatedAt
	return nil
}

func (a *SQLAdapter) CreateItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	models := make([]itemModel, 0, len(items))
	for _, i := range items {
		models = append(models, itemFromDomain(i))
	}
	if err := a.conn(ctx).Create(&models).Error; err != nil {
		return nil, fmt.Errorf("insert items: %w", translateError(err))
	}
	out := make([]domain.Item, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (a *SQLAdapter) ListAvailableItems(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Item], error) {
	available := func() *gorm.DB {
		return a.conn(ctx).Model(&itemModel{}).Where("remaining_quantity > ?", 0)
	}

	var total int64
	if err := available().Count(&total).Error; err != nil {
		return domain.Page[domain.Item]{}, fmt.Errorf("count items: %w", err)
	}

	var models []itemModel
	err := applyOrder(available(), req.Sort, "lost_items", itemColumns).
		Offset(req.Offset()).Limit(req.Size).
		Find(&models).Error
	if err != nil {
		return domain.Page[domain.Item]{}, fmt.Errorf("list items: %w", err)
	}

	items := make([]domain.Item, 0, len(models))
	for _, m := range models {
		items = append(items, m.toDomain())
	}
	return domain.NewPage(items, req, total), nil
}

func (a *SQLAdapter) ExistsClaim(ctx context.Context, userID, itemID int64) (bool, error) {
	var count int64
	err := a.conn(ctx).Model(&claimModel{}).
		Where("user_id = ? AND lost_item_id = ?", userID, itemID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query claim: %w", translateError(err))
	}
	return count > 0, nil
}

func (a *SQLAdapter) CreateClaim(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	m := claimModel{
		UserID:          claim.UserID,
		ItemID:          claim.ItemID,
		ClaimedQuantity: claim.Quantity,
		ClaimDate:       claim.ClaimDate,
		Status:          string(claim.Status),
		Notes:           claim.Note,
	}
	if err := a.conn(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.Claim{}, domain.ErrDuplicateClaim
		}
		return domain.Claim{}, fmt.Errorf("insert claim: %w", translateError(err))
	}
	return m.toDomain(), nil
}

func (a *SQLAdapter) ListClaims(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ClaimView], error) {
	var total int64
	if err := a.conn(ctx).Model(&claimModel{}).Count(&total).Error; err != nil {
		return domain.Page[domain.ClaimView]{}, fmt.Errorf("count claims: %w", err)
	}

	query := a.conn(ctx).Table("claims").
		Select(`claims.id, claims.user_id, users.name AS user_name,
			claims.lost_item_id AS item_id, lost_items.item_name, lost_items.place,
			claims.claimed_quantity, claims.claim_date, claims.status, claims.notes`).
		Joins("JOIN users ON users.id = claims.user_id").
		Joins("JOIN lost_items ON lost_items.id = claims.lost_item_id")

	var rows []claimRow
	err := applyOrder(query, req.Sort, "claims", claimColumns).
		Offset(req.Offset()).Limit(req.Size).
		Scan(&rows).Error
	if err != nil {
		return domain.Page[domain.ClaimView]{}, fmt.Errorf("list claims: %w", err)
	}

	views := make([]domain.ClaimView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.toDomain())
	}
	return domain.NewPage(views, req, total), nil
}

func (a *SQLAdapter) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return a.findUser(ctx, "username = ?", username)
}

func (a *SQLAdapter) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return a.findUser(ctx, "id = ?", id)
}

func (a *SQLAdapter) findUser(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m userModel
	err := a.conn(ctx).Where(cond, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", translateError(err))
	}
	u := m.toDomain()
	return &u, nil
}

func (a *SQLAdapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	m := userModel{
		Username: user.Username,
		Password: user.PasswordHash,
		Name:     user.Name,
		Email:    user.Email,
		Role:     string(user.Role),
		Enabled:  user.Enabled,
	}
	if err := a.conn(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.User{}, fmt.Errorf("%w: username %q is taken", domain.ErrInvalidOperation, user.Username)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", translateError(err))
	}
	return m.toDomain(), nil
}

// applyOrder adds the requested ordering, falling back to id ascending.
// Fields are mapped through columns, so only allow-listed names reach SQL.
func applyOrder(db *gorm.DB, sort []domain.SortOrder, table string, columns map[string]string) *gorm.DB {
	if len(sort) == 0 {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}})
	}
	for _, s := range sort {
		col, ok := columns[s.Field]
		if !ok {
			continue
		}
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Table: table, Name: col},
			Desc:   s.Direction == domain.SortDesc,
		})
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}})
}
