package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidName is returned when the display name is too short.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidRole is returned for roles other than admin, manager and agent.
	ErrInvalidRole = errors.New("invalid role")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new staff account and returns it with a token.
func (s *Service) Register(ctx context.Context, email, password, name string, role store.Role) (*store.User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, "", ErrInvalidName
	}
	if role == "" {
		role = store.RoleAgent
	}
	if !role.Valid() {
		return nil, "", ErrInvalidRole
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, IdentityOf(user))
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, IdentityOf(user))
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// IdentityOf builds the token identity for a stored user.
func IdentityOf(user *store.User) core.Identity {
	return core.Identity{
		Subject: user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    string(user.Role),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
