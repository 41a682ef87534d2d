// Package agent implements the agent execution framework: a registry of
// named capabilities, the per-invocation execution context, and the engine
// that runs one invocation and records it in the execution log.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/model"
)

// InputField declares one expected input for an agent. The engine checks
// required fields for presence before invoking; value validation beyond
// presence belongs to the agent itself.
type InputField struct {
	Name        string
	Description string
	Required    bool
}

// Result is the output of a successful agent invocation.
type Result struct {
	Data       map[string]any
	TokensUsed int
}

// ExecuteFunc is the capability of an agent: a pure function from input and
// execution context to a result. Failures are returned as errors; the engine
// converts them into the uniform response envelope.
type ExecuteFunc func(ctx context.Context, input map[string]any, ec *Context) (Result, error)

// Definition describes one registered agent. Immutable once registered.
// Display metadata (Name, Description, Category, Icon) is never used for
// dispatch.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    string
	Icon        string
	Inputs      []InputField
	Execute     ExecuteFunc
}

// Info returns the display metadata for API listings.
func (d Definition) Info() model.AgentInfo {
	return model.AgentInfo{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Icon:        d.Icon,
	}
}

// TaskFilter narrows a task query performed through the user-scoped store.
type TaskFilter struct {
	Status    model.TaskStatus
	DueBefore *time.Time
	Limit     int
}

// Store is the user-scoped data boundary handed to agents. Every read is
// implicitly filtered to the owning user; agents cannot reach other users'
// rows through it.
type Store interface {
	UserID() uuid.UUID
	ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, error)
	Profile(ctx context.Context) (model.UserProfile, error)
}

// RunLog is the append-only execution log consumed by the engine.
// Appends are best-effort from the engine's perspective: a failed audit
// write is logged but never fails the invocation itself.
type RunLog interface {
	CreateRun(ctx context.Context, run model.TaskRun) error
	CompleteRun(ctx context.Context, id uuid.UUID, output map[string]any, tokensUsed *int) error
	FailRun(ctx context.Context, id uuid.UUID, errMsg string) error
}
