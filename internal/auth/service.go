package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campushub/campushub-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidName is returned when the display name doesn't meet constraints.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPassword is returned when the password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidRole is returned when the role is not student or professor.
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

// Register creates a new user with hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, name, email, password string, role store.Role) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(name) < 2 || len(name) > 64 {
		return "", ErrInvalidName
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}
	if !role.Valid() {
		return "", ErrInvalidRole
	}

	if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, name, email, hashedPassword, role)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken validates a JWT token and resolves the caller's identity.
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
