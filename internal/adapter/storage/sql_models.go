package storage

import (
	"time"

	"github.com/rl1809/lost-found/internal/core/domain"
)

type itemModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	ItemName          string    `gorm:"column:item_name;size:255;not null"`
	Quantity          int       `gorm:"not null"`
	RemainingQuantity int       `gorm:"column:remaining_quantity;not null;index:idx_lost_items_remaining;check:remaining_quantity >= 0 AND remaining_quantity <= quantity"`
	Place             string    `gorm:"size:255;not null"`
	Description       string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time
	Version           int64 `gorm:"not null;default:0"`
}

func (itemModel) TableName() string { return "lost_items" }

func itemFromDomain(i domain.Item) itemModel {
	return itemModel{
		ID:                i.ID,
		ItemName:          i.Name,
		Quantity:          i.Quantity,
		RemainingQuantity: i.RemainingQuantity,
		Place:             i.Place,
		Description:       i.Description,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		Version:           i.Version,
	}
}

func (m itemModel) toDomain() domain.Item {
	return domain.Item{
		ID:                m.ID,
		Name:              m.ItemName,
		Quantity:          m.Quantity,
		RemainingQuantity: m.RemainingQuantity,
		Place:             m.Place,
		Description:       m.Description,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		Version:           m.Version,
	}
}

type claimModel struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	UserID          int64     `gorm:"not null;uniqueIndex:idx_claims_user_item,priority:1"`
	ItemID          int64     `gorm:"column:lost_item_id;not null;uniqueIndex:idx_claims_user_item,priority:2"`
	ClaimedQuantity int       `gorm:"column:claimed_quantity;not null"`
	ClaimDate       time.Time `gorm:"column:claim_date;not null"`
	Status          string    `gorm:"size:20;not null;default:PENDING"`
	Notes           string    `gorm:"type:text"`

	// belongs-to, only for the fk_claims_user and fk_claims_item constraints
	User *userModel `gorm:"foreignKey:UserID"`
	Item *itemModel `gorm:"foreignKey:ItemID"`
}

func (claimModel) TableName() string { return "claims" }

func (m claimModel) toDomain() domain.Claim {
	return domain.Claim{
		ID:        m.ID,
		UserID:    m.UserID,
		ItemID:    m.ItemID,
		Quantity:  m.ClaimedQuantity,
		Status:    domain.ClaimStatus(m.Status),
		ClaimDate: m.ClaimDate,
		Note:      m.Notes,
	}
}

// claimRow is a claim joined with its user and item.
type claimRow struct {
	ID              int64
	UserID          int64
	UserName        string
	ItemID          int64
	ItemName        string
	Place           string
	ClaimedQuantity int
	ClaimDate       time.Time
	Status          string
	Notes           string
}

func (r claimRow) toDomain() domain.ClaimView {
	return domain.ClaimView{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		ItemID:    r.ItemID,
		ItemName:  r.ItemName,
		Place:     r.Place,
		Quantity:  r.ClaimedQuantity,
		ClaimDate: r.ClaimDate,
		Status:    domain.ClaimStatus(r.Status),
		Note:      r.Notes,
	}
}

type userModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"size:100;not null;uniqueIndex"`
	Password  string `gorm:"size:255;not null"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"size:255"`
	Role      string `gorm:"size:20;not null;default:USER"`
	Enabled   bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Name:         m.Name,
		Email:        m.Email,
		Role:         domain.Role(m.Role),
		Enabled:      m.Enabled,
		PasswordHash: m.Password,
	}
}

// columns maps API sort names to column names.
var (
	itemColumns = map[string]string{
		"id":                "id",
		"itemName":          "item_name",
		"quantity":          "quantity",
		"remainingQuantity": "remaining_quantity",
		"place":             "place",
		"createdAt":         "created_at",
		"updatedAt":         "updated_at",
	}
	claimColumns = map[string]string{
		"id":              "id",
		"claimDate":       "claim_date",
		"claimedQuantity": "claimed_quantity",
		"status":          "status",
		"notes":           "notes",
	}
)
