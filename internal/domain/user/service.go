package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrEmailExists is returned when trying to register with an email that already exists
	ErrEmailExists = errors.New("email already exists")
	// ErrEmailRequired is returned when trying to register with an empty email
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordRequired is returned when trying to register with an empty password
	ErrPasswordRequired = errors.New("password is required")
	// ErrInvalidCredentials is returned when the email/password pair does not match an active user
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents the input for a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service interface for user operations
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// service struct for user operations
type service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo}
}

// Register registers a new user
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Email == "" {
		return nil, ErrEmailRequired
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:    req.Email,
		Name:     req.Name,
		Password: hashedPassword,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate checks an email/password pair against the stored hash.
// Missing users, inactive users and wrong passwords all map to
// ErrInvalidCredentials so callers cannot probe which one happened.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// ChangePassword verifies the current password and stores a new hash.
// The route layer is responsible for revoking standing sessions afterwards.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if next == "" {
		return ErrPasswordRequired
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if !VerifyPassword(current, u.Password) {
		return ErrInvalidCredentials
	}

	hashed, err := HashPassword(next)
	if err != nil {
		return err
	}

	u.Password = hashed
	return s.repo.Update(ctx, u)
}
