package domain

import "time"

// Item is a found object with claimable stock.
type Item struct {
	ID                int64
	Name              string
	Quantity          int
	RemainingQuantity int
	Place             string
	Description       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64 // optimistic locking
}

// NewItem builds an unsaved item whose remaining stock equals its total quantity.
func NewItem(name string, quantity int, place, description string, now time.Time) Item {
	return Item{
		Name:              name,
		Quantity:          quantity,
		RemainingQuantity: quantity,
		Place:             place,
		Description:       description,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// AttemptClaim takes quantity out of the remaining stock. It reports false and
// leaves the item untouched when quantity is not positive or exceeds what is left.
func (i *Item) AttemptClaim(quantity int) bool {
	if quantity <= 0 {
		return false
	}
	if i.RemainingQuantity >= quantity {
		i.RemainingQuantity -= quantity
		return true
	}
	return false
}

func (i *Item) IsAvailable() bool {
	return i.RemainingQuantity > 0
}
