package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/model"
)

// TaskFilter narrows a ListTasks query.
type TaskFilter struct {
	Status      model.TaskStatus
	DueBefore   *time.Time
	StaleBefore *time.Time // tasks not updated since this time
	Limit       int
}

// CreateTask inserts a founder task.
func (db *DB) CreateTask(ctx context.Context, task model.Task) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tasks (id, user_id, title, status, priority, due_at, updated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.UserID, task.Title, string(task.Status), task.Priority,
		task.DueAt, task.UpdatedAt, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create task: %w", err)
	}
	return nil
}

// ListTasks returns the user's tasks. Like runs, the user id filter is
// mandatory; ordering is by priority then due date.
func (db *DB) ListTasks(ctx context.Context, userID uuid.UUID, f TaskFilter) ([]model.Task, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("storage: list tasks: user id is required")
	}
	limit := clampLimit(f.Limit, 100)

	query := `SELECT id, user_id, title, status, priority, due_at, updated_at, created_at
	          FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.DueBefore != nil {
		args = append(args, *f.DueBefore)
		query += fmt.Sprintf(` AND due_at IS NOT NULL AND due_at <= $%d`, len(args))
	}
	if f.StaleBefore != nil {
		args = append(args, *f.StaleBefore)
		query += fmt.Sprintf(` AND updated_at < $%d`, len(args))
	}
	query += fmt.Sprintf(` ORDER BY priority DESC, due_at ASC NULLS LAST LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var status string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &status, &t.Priority, &t.DueAt, &t.UpdatedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		t.Status = model.TaskStatus(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	return tasks, nil
}
