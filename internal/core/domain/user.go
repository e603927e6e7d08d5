package domain

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is owned outside the core. Claims only read it to resolve the claimant.
type User struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	Role         Role
	Enabled      bool
	PasswordHash string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
