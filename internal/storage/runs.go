package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/model"
)

// DefaultRunListLimit applies to history queries when the caller supplies no
// limit; MaxListLimit is the ceiling for any list query.
const (
	DefaultRunListLimit = 50
	MaxListLimit        = 500
)

// clampLimit resolves a caller-supplied page size. Zero or negative means
// the default; anything above the ceiling is clamped, not rejected.
func clampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}

// CreateRun inserts a new task run record.
func (db *DB) CreateRun(ctx context.Context, run model.TaskRun) error {
	if run.Input == nil {
		run.Input = map[string]any{}
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO task_runs (id, agent_id, user_id, status, input, started_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.AgentID, run.UserID, string(run.Status), run.Input, run.StartedAt, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create run: %w", err)
	}
	return nil
}

// CompleteRun finalizes a run as completed with its output and token usage.
// Only a run still in running status can be finalized; a second terminal
// write is a no-op at the SQL level and reported as an error.
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, output map[string]any, tokensUsed *int) error {
	if output == nil {
		output = map[string]any{}
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE task_runs SET status = 'completed', output = $1, tokens_used = $2, completed_at = now()
		 WHERE id = $3 AND status = 'running'`,
		output, tokensUsed, id,
	)
	if err != nil {
		return fmt.Errorf("storage: complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: run not found or already finalized: %s", id)
	}
	return nil
}

// FailRun finalizes a run as failed with its error message.
func (db *DB) FailRun(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE task_runs SET status = 'failed', error = $1, completed_at = now()
		 WHERE id = $2 AND status = 'running'`,
		errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("storage: fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: run not found or already finalized: %s", id)
	}
	return nil
}

// RunFilter narrows a ListRuns query. AgentID is optional; the user id on
// ListRuns itself is not.
type RunFilter struct {
	AgentID string
	Limit   int
}

// ListRuns returns the user's runs ordered by started_at DESC. The user id
// filter is mandatory at this boundary: records of other users are never
// reachable regardless of the filter.
func (db *DB) ListRuns(ctx context.Context, userID uuid.UUID, f RunFilter) ([]model.TaskRun, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("storage: list runs: user id is required")
	}
	limit := clampLimit(f.Limit, DefaultRunListLimit)

	query := `SELECT id, agent_id, user_id, status, input, output, error, tokens_used, started_at, completed_at, created_at
	          FROM task_runs WHERE user_id = $1`
	args := []any{userID}
	if f.AgentID != "" {
		query += ` AND agent_id = $2`
		args = append(args, f.AgentID)
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.TaskRun
	for rows.Next() {
		var r model.TaskRun
		var status string
		if err := rows.Scan(
			&r.ID, &r.AgentID, &r.UserID, &status, &r.Input, &r.Output,
			&r.Error, &r.TokensUsed, &r.StartedAt, &r.CompletedAt, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	return runs, nil
}
