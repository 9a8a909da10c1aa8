package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-todo-api/internal/database"
)

// Changes is a validated partial update. Nil fields are left untouched.
type Changes struct {
	Text      *string
	Status    *Status
	Completed *bool
	Priority  *Priority
	DueDate   *time.Time
	// ClearDueDate sets the due date to NULL and wins over DueDate
	ClearDueDate bool
	// Reopen moves a completed todo back to pending and leaves any other status alone
	Reopen bool
}

// Repository handles todo persistence. Every query is scoped by owner.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a fully populated todo
func (r *Repository) Create(ctx context.Context, t *Todo) error {
	_, err := r.db.NewInsert().
		Model(mapModelToDBTodo(t)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// List returns the owner's todos, newest first, optionally filtered
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, status *Status, priority *Priority) ([]*Todo, error) {
	var rows []database.Todo

	q := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	if priority != nil {
		q = q.Where("priority = ?", string(*priority))
	}

	if err := q.OrderExpr("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	todos := make([]*Todo, 0, len(rows))
	for i := range rows {
		todos = append(todos, mapDBTodoToModel(&rows[i]))
	}
	return todos, nil
}

// GetByID returns the todo only when it belongs to ownerID
func (r *Repository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Todo, error) {
	row := new(database.Todo)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return mapDBTodoToModel(row), nil
}

// Update applies changes and reads back the stored row in a single statement
func (r *Repository) Update(ctx context.Context, ownerID, id uuid.UUID, c Changes, now time.Time) (*Todo, error) {
	row := new(database.Todo)
	q := r.db.NewUpdate().
		Model(row).
		Set("updated_at = ?", now)

	if c.Text != nil {
		q = q.Set("text = ?", *c.Text)
	}
	if c.Status != nil {
		q = q.Set("status = ?", string(*c.Status))
	}
	if c.Completed != nil {
		q = q.Set("completed = ?", *c.Completed)
	}
	if c.Reopen {
		q = q.Set("status = CASE WHEN status = ? THEN ? ELSE status END",
			string(StatusCompleted), string(StatusPending))
	}
	if c.Priority != nil {
		q = q.Set("priority = ?", string(*c.Priority))
	}
	switch {
	case c.ClearDueDate:
		q = q.Set("due_date = NULL")
	case c.DueDate != nil:
		q = q.Set("due_date = ?", *c.DueDate)
	}

	res, err := q.
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	// no returned row means the id is unknown or owned by someone else
	if err := requireOneRow(res); err != nil {
		return nil, err
	}

	return mapDBTodoToModel(row), nil
}

// Delete permanently removes the todo when it belongs to ownerID
func (r *Repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*database.Todo)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapModelToDBTodo(t *Todo) *database.Todo {
	return &database.Todo{
		ID:        t.ID,
		UserID:    t.UserID,
		Text:      t.Text,
		Completed: t.Completed,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func mapDBTodoToModel(row *database.Todo) *Todo {
	t := &Todo{
		ID:        row.ID,
		UserID:    row.UserID,
		Text:      row.Text,
		Completed: row.Completed,
		Status:    Status(row.Status),
		Priority:  Priority(row.Priority),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.DueDate != nil {
		due := row.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}
