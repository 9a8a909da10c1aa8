package todo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-todo-api/internal/validate"
)

var (
	ErrInvalidID = errors.New("invalid todo id")
	ErrNotFound  = errors.New("todo not found")
)

const (
	maxTextLen = 500
	dateLayout = "2006-01-02"
	// statusAll in a list filter means no status filter
	statusAll = "all"
)

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Status   string
	Priority string
}

// CreateInput is the data needed for a new todo
type CreateInput struct {
	Text     string
	Priority string
	DueDate  string
}

// Patch is a partial update. Nil fields are not changed.
type Patch struct {
	Text      *string
	Completed *bool
	Status    *string
	Priority  *string
	DueDate   NullableString
}

func (p Patch) empty() bool {
	return p.Text == nil && p.Completed == nil && p.Status == nil && p.Priority == nil && !p.DueDate.Set
}

// Service holds todo business rules on top of the owner-scoped store
type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// List returns the owner's todos, newest first
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]*Todo, error) {
	var status *Status
	if f.Status != "" && f.Status != statusAll {
		st, err := parseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		status = &st
	}

	var priority *Priority
	if f.Priority != "" {
		p, err := parsePriority(f.Priority)
		if err != nil {
			return nil, err
		}
		priority = &p
	}

	return s.repo.List(ctx, ownerID, status, priority)
}

// Create validates the input and stores a new pending todo
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Todo, error) {
	text, err := validateText(in.Text)
	if err != nil {
		return nil, err
	}

	priority := PriorityMedium
	if in.Priority != "" {
		if priority, err = parsePriority(in.Priority); err != nil {
			return nil, err
		}
	}

	var dueDate *time.Time
	if in.DueDate != "" {
		d, err := ParseDueDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &d
	}

	now := s.now()
	t := &Todo{
		ID:        uuid.New(),
		Text:      text,
		Completed: false,
		Status:    StatusPending,
		Priority:  priority,
		DueDate:   dueDate,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a todo the owner can see. Todos of other users are ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID uuid.UUID, rawID string) (*Todo, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, ownerID, id)
}

// Update validates the patch, applies the status/completed coupling and
// persists the supplied fields only
func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, rawID string, p Patch) (*Todo, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	changes, err := buildChanges(p)
	if err != nil {
		return nil, err
	}

	if p.empty() {
		return s.repo.GetByID(ctx, ownerID, id)
	}

	return s.repo.Update(ctx, ownerID, id, changes, s.now())
}

// Delete permanently removes a todo the owner can see
func (s *Service) Delete(ctx context.Context, ownerID uuid.UUID, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, ownerID, id)
}

// buildChanges validates every supplied field in order and resolves the
// coupling between status and completed
func buildChanges(p Patch) (Changes, error) {
	var c Changes

	if p.Text != nil {
		text, err := validateText(*p.Text)
		if err != nil {
			return c, err
		}
		c.Text = &text
	}

	if p.Status != nil {
		st, err := parseStatus(*p.Status)
		if err != nil {
			return c, err
		}
		done := st == StatusCompleted
		if p.Completed != nil && *p.Completed != done {
			return c, validate.New("completed", "completed must be true exactly when status is completed")
		}
		c.Status = &st
		c.Completed = &done
	} else if p.Completed != nil {
		done := *p.Completed
		c.Completed = &done
		if done {
			st := StatusCompleted
			c.Status = &st
		} else {
			c.Reopen = true
		}
	}

	if p.Priority != nil {
		pr, err := parsePriority(*p.Priority)
		if err != nil {
			return c, err
		}
		c.Priority = &pr
	}

	if p.DueDate.Set {
		if p.DueDate.Value == nil {
			c.ClearDueDate = true
		} else {
			d, err := ParseDueDate(*p.DueDate.Value)
			if err != nil {
				return c, err
			}
			c.DueDate = &d
		}
	}

	return c, nil
}

// ParseID rejects anything that is not a UUID before the store is queried
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}

// ParseDueDate accepts an RFC 3339 timestamp or a calendar date (midnight UTC)
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		// stored with microsecond precision
		return t.UTC().Truncate(time.Microsecond), nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, validate.New("dueDate", "Invalid due date")
}

func validateText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if err := validate.Length(text, 1, maxTextLen, "text",
		"Todo text is required", "Todo text cannot be more than 500 characters"); err != nil {
		return "", err
	}
	return text, nil
}

func parseStatus(raw string) (Status, error) {
	st := Status(raw)
	if !st.Valid() {
		return "", validate.New("status", "Invalid status: must be one of pending, in-progress, completed, cancelled")
	}
	return st, nil
}

func parsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", validate.New("priority", "Invalid priority: must be one of low, medium, high")
	}
	return p, nil
}
