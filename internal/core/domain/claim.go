package domain

import "time"

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "PENDING"
	ClaimStatusApproved  ClaimStatus = "APPROVED"
	ClaimStatusRejected  ClaimStatus = "REJECTED"
	ClaimStatusFulfilled ClaimStatus = "FULFILLED"
)

type Claim struct {
	ID        int64
	UserID    int64
	ItemID    int64
	Quantity  int
	Status    ClaimStatus
	ClaimDate time.Time
	Note      string
}

// ClaimView is a claim enriched with the claimant's display name and the
// item's name and place.
type ClaimView struct {
	ID        int64
	UserID    int64
	UserName  string
	ItemID    int64
	ItemName  string
	Place     string
	Quantity  int
	ClaimDate time.Time
	Status    ClaimStatus
	Note      string
}

func NewClaimView(c Claim, u User, i Item) ClaimView {
	return ClaimView{
		ID:        c.ID,
		UserID:    u.ID,
		UserName:  u.Name,
		ItemID:    i.ID,
		ItemName:  i.Name,
		Place:     i.Place,
		Quantity:  c.Quantity,
		ClaimDate: c.ClaimDate,
		Status:    c.Status,
		Note:      c.Note,
	}
}
