package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-todo-api/internal/validate"
)

const minPasswordLen = 6

// Service is the credential store: it validates, hashes and looks up accounts
type Service struct {
	repo   *Repository
	params PasswordParams
	now    func() time.Time

	// dummyHash is verified for unknown emails so lookups cost the same either way
	dummyHash string
}

func NewService(repo *Repository, params PasswordParams) (*Service, error) {
	dummy, err := HashPassword(uuid.NewString(), params)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		repo:      repo,
		params:    params,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		dummyHash: dummy,
	}, nil
}

// NormalizeEmail is the single canonical form used for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword applies the password length rule
func ValidatePassword(password string) error {
	return validate.Length(password, minPasswordLen, 0, "password",
		"Password must be at least 6 characters", "")
}

// ValidateEmail applies the email format rule to an already normalised email
func ValidateEmail(email string) error {
	return validate.Email(email, "email", "Invalid email address")
}

// ValidateNewUser applies the registration rules in order and returns the first failure
func ValidateNewUser(name, email, password string) error {
	return validate.First(
		validate.Length(strings.TrimSpace(name), 2, 50, "name",
			"Name must be at least 2 characters", "Name cannot be more than 50 characters"),
		ValidateEmail(NormalizeEmail(email)),
		ValidatePassword(password),
	)
}

// CreateUser validates the input, hashes the password and stores the account
func (s *Service) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	if err := ValidateNewUser(name, email, password); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	passwordHash, err := HashPassword(password, s.params)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, name, email, passwordHash, s.now())
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return u, nil
}

// FindByEmail looks up an account by email, normalising it first
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// FindByID looks up an account by id
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// VerifyPassword checks a candidate password against the user's stored hash.
// A nil user is checked against a dummy hash and always fails.
func (s *Service) VerifyPassword(u *User, password string) bool {
	if u == nil {
		CheckPassword(s.dummyHash, password)
		return false
	}
	return CheckPassword(u.PasswordHash, password)
}
