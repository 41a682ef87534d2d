package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/model"
)

// UserStore pins every query to a single user id, implementing the
// user-scoped data boundary agents execute against. Constructed fresh per
// invocation by the engine; holds no per-request state beyond the id.
type UserStore struct {
	db     *DB
	userID uuid.UUID
}

// ScopedTo returns a store whose every operation is filtered to userID.
func (db *DB) ScopedTo(userID uuid.UUID) *UserStore {
	return &UserStore{db: db, userID: userID}
}

// UserID returns the identity the store is scoped to.
func (s *UserStore) UserID() uuid.UUID {
	return s.userID
}

// ListTasks returns the scoped user's tasks.
func (s *UserStore) ListTasks(ctx context.Context, f agent.TaskFilter) ([]model.Task, error) {
	return s.db.ListTasks(ctx, s.userID, TaskFilter{
		Status:    f.Status,
		DueBefore: f.DueBefore,
		Limit:     f.Limit,
	})
}

// Profile returns the scoped user's profile.
func (s *UserStore) Profile(ctx context.Context) (model.UserProfile, error) {
	return s.db.GetUser(ctx, s.userID)
}
