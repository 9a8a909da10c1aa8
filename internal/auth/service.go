package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redmonkez12/go-todo-api/internal/user"
	"github.com/redmonkez12/go-todo-api/internal/validate"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is the subset of the credential store the auth flows need
type Credentials interface {
	CreateUser(ctx context.Context, name, email, password string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	VerifyPassword(u *user.User, password string) bool
}

// RegisterInput is the registration form
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult is returned by successful register and login calls
type AuthResult struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// Service handles authentication business logic
type Service struct {
	credentials Credentials
	tokens      TokenService
}

func NewService(credentials Credentials, tokens TokenService) *Service {
	return &Service{
		credentials: credentials,
		tokens:      tokens,
	}
}

// Register creates a new account and issues a session token for it
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := user.ValidateNewUser(in.Name, in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, validate.New("confirmPassword", "Passwords don't match")
	}

	newUser, err := s.credentials.CreateUser(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		if _, ok := validate.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(newUser)
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := validate.First(
		user.ValidateEmail(user.NormalizeEmail(email)),
		user.ValidatePassword(password),
	); err != nil {
		return nil, err
	}

	existingUser, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.credentials.VerifyPassword(nil, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.credentials.VerifyPassword(existingUser, password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(existingUser)
}

func (s *Service) issue(u *user.User) (*AuthResult, error) {
	token, err := s.tokens.CreateToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &AuthResult{User: u, Token: token}, nil
}
