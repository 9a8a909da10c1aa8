package todo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-todo-api/internal/database/dbtest"
	"github.com/redmonkez12/go-todo-api/internal/user"
	"github.com/redmonkez12/go-todo-api/internal/validate"
)

// newTestService returns a service whose clock advances one second per call
func newTestService(t *testing.T) (*Service, *bun.DB) {
	t.Helper()
	db := dbtest.New(t)
	svc := NewService(NewRepository(db))

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, db
}

func newOwner(t *testing.T, db *bun.DB, email string) uuid.UUID {
	t.Helper()
	u, err := user.NewRepository(db).Create(context.Background(), "Owner", email, "hash", time.Now().UTC())
	require.NoError(t, err)
	return u.ID
}

func ptr[T any](v T) *T { return &v }

func requireValidation(t *testing.T, err error, wantMsg string) {
	t.Helper()
	verr, ok := validate.As(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, wantMsg, verr.Message)
}

func TestCreate_Defaults(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "  Buy milk  "})
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", created.Text)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.False(t, created.Completed)
	assert.Nil(t, created.DueDate)
	assert.Equal(t, ann, created.UserID)

	stored, err := svc.Get(ctx, ann, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Text, stored.Text)
	assert.True(t, created.CreatedAt.Equal(stored.CreatedAt))
}

func TestCreate_WithPriorityAndDueDate(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")

	created, err := svc.Create(context.Background(), ann, CreateInput{
		Text:     "File taxes",
		Priority: "high",
		DueDate:  "2026-04-15",
	})
	require.NoError(t, err)

	assert.Equal(t, PriorityHigh, created.Priority)
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)))
}

func TestCreate_ReturnsWhatIsStored(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Dentist", DueDate: "2026-05-01T09:00:00.123456789Z"})
	require.NoError(t, err)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, 123456000, created.DueDate.Nanosecond())

	stored, err := svc.Get(ctx, ann, created.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.DueDate)
	assert.True(t, created.DueDate.Equal(*stored.DueDate))

	updated, err := svc.Update(ctx, ann, created.ID.String(), Patch{DueDate: NullableString{Set: true, Value: ptr("2026-06-01T10:00:00.987654321Z")}})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, 987654000, updated.DueDate.Nanosecond())
}

func TestCreate_Validation(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")

	tests := []struct {
		name    string
		in      CreateInput
		wantMsg string
	}{
		{"empty text", CreateInput{Text: ""}, "Todo text is required"},
		{"blank text", CreateInput{Text: "   "}, "Todo text is required"},
		{"long text", CreateInput{Text: strings.Repeat("x", 501)}, "Todo text cannot be more than 500 characters"},
		{"bad priority", CreateInput{Text: "x", Priority: "urgent"}, "Invalid priority: must be one of low, medium, high"},
		{"bad due date", CreateInput{Text: "x", DueDate: "tomorrow"}, "Invalid due date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), ann, tt.in)
			requireValidation(t, err, tt.wantMsg)
		})
	}

	todos, err := svc.List(context.Background(), ann, Filter{})
	require.NoError(t, err)
	assert.Empty(t, todos, "rejected input must not be stored")

	_, err = svc.Create(context.Background(), ann, CreateInput{Text: strings.Repeat("é", 500)})
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestGet_OwnerScoped(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	bob := newOwner(t, db, "bob@x.com")
	ctx := context.Background()

	annTodo, err := svc.Create(ctx, ann, CreateInput{Text: "Ann's"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, annTodo.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "todo not found")

	_, err = svc.Update(ctx, bob, annTodo.ID.String(), Patch{Text: ptr("mine now")})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, bob, annTodo.ID.String()), ErrNotFound)

	still, err := svc.Get(ctx, ann, annTodo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ann's", still.Text)
}

func TestInvalidID(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	for _, id := range []string{"", "123", "507f1f77bcf86cd799439011", "not-a-uuid"} {
		_, err := svc.Get(ctx, ann, id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
		assert.EqualError(t, err, "invalid todo id", id)

		_, err = svc.Update(ctx, ann, id, Patch{})
		assert.ErrorIs(t, err, ErrInvalidID, id)

		assert.ErrorIs(t, svc.Delete(ctx, ann, id), ErrInvalidID, id)
	}
}

func TestUpdate_PriorityOnlyLeavesRestUnchanged(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Buy milk", DueDate: "2026-05-01T09:30:00Z"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, ann, created.ID.String(), Patch{Priority: ptr("high")})
	require.NoError(t, err)

	assert.Equal(t, PriorityHigh, updated.Priority)
	assert.Equal(t, created.Text, updated.Text)
	assert.Equal(t, created.Status, updated.Status)
	assert.Equal(t, created.Completed, updated.Completed)
	require.NotNil(t, updated.DueDate)
	assert.True(t, created.DueDate.Equal(*updated.DueDate))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestUpdate_DueDate(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Dentist"})
	require.NoError(t, err)
	id := created.ID.String()

	updated, err := svc.Update(ctx, ann, id, Patch{DueDate: NullableString{Set: true, Value: ptr("2026-06-01T10:00:00+02:00")}})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.True(t, updated.DueDate.Equal(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))

	cleared, err := svc.Update(ctx, ann, id, Patch{DueDate: NullableString{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)

	_, err = svc.Update(ctx, ann, id, Patch{DueDate: NullableString{Set: true, Value: ptr("01/06/2026")}})
	requireValidation(t, err, "Invalid due date")
}

func TestUpdate_StatusCompletedCoupling(t *testing.T) {
	tests := []struct {
		name          string
		start         Status
		patch         Patch
		wantStatus    Status
		wantCompleted bool
	}{
		{"completed true completes", StatusInProgress, Patch{Completed: ptr(true)}, StatusCompleted, true},
		{"completed false reopens", StatusCompleted, Patch{Completed: ptr(false)}, StatusPending, false},
		{"completed false keeps other status", StatusInProgress, Patch{Completed: ptr(false)}, StatusInProgress, false},
		{"status completed sets flag", StatusPending, Patch{Status: ptr("completed")}, StatusCompleted, true},
		{"status away from completed clears flag", StatusCompleted, Patch{Status: ptr("cancelled")}, StatusCancelled, false},
		{"agreeing pair", StatusPending, Patch{Status: ptr("completed"), Completed: ptr(true)}, StatusCompleted, true},
		{"any transition allowed", StatusCancelled, Patch{Status: ptr("pending")}, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newTestService(t)
			ann := newOwner(t, db, "ann@x.com")
			ctx := context.Background()

			created, err := svc.Create(ctx, ann, CreateInput{Text: "Task"})
			require.NoError(t, err)
			id := created.ID.String()

			_, err = svc.Update(ctx, ann, id, Patch{Status: ptr(string(tt.start))})
			require.NoError(t, err)

			got, err := svc.Update(ctx, ann, id, tt.patch)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCompleted, got.Completed)
		})
	}
}

func TestUpdate_Validation(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Task"})
	require.NoError(t, err)
	id := created.ID.String()

	tests := []struct {
		name    string
		patch   Patch
		wantMsg string
	}{
		{"empty text", Patch{Text: ptr(" ")}, "Todo text is required"},
		{"bad status", Patch{Status: ptr("done")}, "Invalid status: must be one of pending, in-progress, completed, cancelled"},
		{"bad priority", Patch{Priority: ptr("HIGH")}, "Invalid priority: must be one of low, medium, high"},
		{"contradiction", Patch{Status: ptr("pending"), Completed: ptr(true)}, "completed must be true exactly when status is completed"},
		{"later field invalid", Patch{Text: ptr("ok"), Priority: ptr("nope")}, "Invalid priority: must be one of low, medium, high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, ann, id, tt.patch)
			requireValidation(t, err, tt.wantMsg)
		})
	}

	unchanged, err := svc.Get(ctx, ann, id)
	require.NoError(t, err)
	assert.Equal(t, "Task", unchanged.Text, "failed validation must not persist anything")
}

func TestUpdate_EmptyPatchReturnsCurrent(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Task"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, ann, created.ID.String(), Patch{})
	require.NoError(t, err)
	assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))

	_, err = svc.Update(ctx, ann, uuid.NewString(), Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_Twice(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, ann, CreateInput{Text: "Task"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ann, created.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, ann, created.ID.String()), ErrNotFound)

	_, err = svc.Get(ctx, ann, created.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_FiltersAndOrder(t *testing.T) {
	svc, db := newTestService(t)
	ann := newOwner(t, db, "ann@x.com")
	bob := newOwner(t, db, "bob@x.com")
	ctx := context.Background()

	mk := func(owner uuid.UUID, text, priority string) *Todo {
		t.Helper()
		td, err := svc.Create(ctx, owner, CreateInput{Text: text, Priority: priority})
		require.NoError(t, err)
		return td
	}

	first := mk(ann, "first", "low")
	second := mk(ann, "second", "high")
	third := mk(ann, "third", "high")
	mk(bob, "bob's", "high")

	for _, td := range []*Todo{first, third} {
		_, err := svc.Update(ctx, ann, td.ID.String(), Patch{Completed: ptr(true)})
		require.NoError(t, err)
	}

	texts := func(todos []*Todo) []string {
		out := make([]string, 0, len(todos))
		for _, td := range todos {
			out = append(out, td.Text)
		}
		return out
	}

	all, err := svc.List(ctx, ann, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, texts(all))

	all, err = svc.List(ctx, ann, Filter{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := svc.List(ctx, ann, Filter{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "first"}, texts(done))
	for _, td := range done {
		assert.Equal(t, StatusCompleted, td.Status)
		assert.True(t, td.Completed)
	}

	high, err := svc.List(ctx, ann, Filter{Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, texts(high))

	both, err := svc.List(ctx, ann, Filter{Status: "pending", Priority: "high"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, second.ID, both[0].ID)
	assert.Equal(t, StatusPending, both[0].Status)
	assert.False(t, both[0].Completed)

	_, err = svc.List(ctx, ann, Filter{Status: "finished"})
	requireValidation(t, err, "Invalid status: must be one of pending, in-progress, completed, cancelled")

	_, err = svc.List(ctx, ann, Filter{Priority: "all"})
	requireValidation(t, err, "Invalid priority: must be one of low, medium, high")

	none, err := svc.List(ctx, newOwner(t, db, "carl@x.com"), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestParseDueDate(t *testing.T) {
	d, err := ParseDueDate("2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDueDate("2026-01-31T23:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 4, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2026-13-01", "31-01-2026", "2026-01-31 10:00"} {
		_, err := ParseDueDate(bad)
		assert.Error(t, err, bad)
	}
}
