package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/port"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// NewUser describes an account to create.
type NewUser struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     domain.Role
}

type UserService struct {
	users  port.UserRepository
	logger *zap.Logger
	cost   int
}

func NewUserService(users port.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger, cost: bcrypt.DefaultCost}
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	return *u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return domain.User{}, fmt.Errorf("%w: id %d", domain.ErrUserNotFound, id)
	}
	return *u, nil
}

// Authenticate checks a username and password pair. Unknown users, disabled
// accounts and wrong passwords all yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !u.Enabled {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// Create hashes the password and stores a new enabled account.
func (s *UserService) Create(ctx context.Context, nu NewUser) (domain.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(nu.Username) == "" {
		fields["username"] = "must not be blank"
	}
	if nu.Password == "" {
		fields["password"] = "must not be blank"
	}
	if nu.Role != domain.RoleUser && nu.Role != domain.RoleAdmin {
		fields["role"] = "must be USER or ADMIN"
	}
	if len(fields) > 0 {
		return domain.User{}, &domain.ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, domain.User{
		Username:     nu.Username,
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         nu.Role,
		Enabled:      true,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return u, nil
}

// EnsureUser creates nu unless the username is already taken. It reports
// whether an account was created.
func (s *UserService) EnsureUser(ctx context.Context, nu NewUser) (bool, error) {
	existing, err := s.users.GetUserByUsername(ctx, nu.Username)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		s.logger.Info("user already exists", zap.String("username", nu.Username))
		return false, nil
	}
	if _, err := s.Create(ctx, nu); err != nil {
		return false, err
	}
	return true, nil
}
