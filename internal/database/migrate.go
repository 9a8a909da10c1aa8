package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type index struct {
	name    string
	model   any
	columns []string
}

// owner-scoped lookups: newest first, and the two list filters
var indexes = []index{
	{name: "idx_todos_user_created", model: (*Todo)(nil), columns: []string{"user_id", "created_at"}},
	{name: "idx_todos_user_status", model: (*Todo)(nil), columns: []string{"user_id", "status"}},
	{name: "idx_todos_user_priority", model: (*Todo)(nil), columns: []string{"user_id", "priority"}},
}

// Migrate creates the schema if it does not exist yet. It is safe to run on every start.
func Migrate(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*Todo)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create todos table: %w", err)
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
