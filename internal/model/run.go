// Package model defines the core domain types for Foundermate.
//
// Types correspond directly to database tables and API payloads. They use
// strong typing (UUIDs, time.Time, enums) and avoid interface{} wherever
// possible; agent input and output remain opaque maps because the agent set
// is open-ended.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of an agent task run.
type RunStatus string

const (
	// RunStatusPending is reserved for queued execution; the engine currently
	// inserts runs directly as running.
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TaskRun is the durable audit record for one agent invocation.
// Append-only: created at invocation start, finalized exactly once with a
// terminal status, never mutated afterwards.
type TaskRun struct {
	ID          uuid.UUID      `json:"id"`
	AgentID     string         `json:"agent_id"`
	UserID      uuid.UUID      `json:"user_id"`
	Status      RunStatus      `json:"status"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output,omitempty"`
	Error       *string        `json:"error,omitempty"`
	TokensUsed  *int           `json:"tokens_used,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Terminal reports whether the run has reached a final status.
func (r TaskRun) Terminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// AgentResponse is the uniform result envelope returned by the execution
// engine. Exactly one of Data/Error is populated, gated by Success.
type AgentResponse struct {
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
}

// UserProfile is the ambient founder profile made available to agents.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name,omitempty"`
	Stage       string    `json:"stage,omitempty"` // e.g. "idea", "pre-seed", "seed"
	CreatedAt   time.Time `json:"created_at"`
}

// TaskStatus represents the state of a founder task (todo item).
type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusDone TaskStatus = "done"
)

// Task is a founder todo item. Read by agents and by the proactive
// event detectors; owned by exactly one user.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	Priority  int        `json:"priority"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedAt time.Time  `json:"created_at"`
}
