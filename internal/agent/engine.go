package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/service/completion"
	"github.com/foundermate/foundermate/internal/telemetry"
)

// StoreFactory builds a user-scoped store for one invocation.
type StoreFactory func(userID uuid.UUID) Store

// Engine orchestrates one agent invocation: resolve the definition, build
// the execution context, run the agent with failure containment, and record
// the invocation in the execution log.
//
// The engine makes a single attempt per invocation; retry policy belongs to
// the caller.
type Engine struct {
	registry  *Registry
	log       RunLog
	newStore  StoreFactory
	completer completion.Provider
	logger    *slog.Logger

	execDuration metric.Float64Histogram
	tokensUsed   metric.Int64Counter
}

// NewEngine creates an execution engine. The registry is injected and treated
// as immutable; no runtime registration happens in steady state.
func NewEngine(registry *Registry, log RunLog, newStore StoreFactory, completer completion.Provider, logger *slog.Logger) *Engine {
	meter := telemetry.Meter("foundermate/engine")
	dur, _ := meter.Float64Histogram("foundermate.agent.duration",
		metric.WithDescription("Agent execution time (ms)"),
		metric.WithUnit("ms"),
	)
	tokens, _ := meter.Int64Counter("foundermate.agent.tokens",
		metric.WithDescription("Completion tokens consumed by agent executions"),
	)
	return &Engine{
		registry:     registry,
		log:          log,
		newStore:     newStore,
		completer:    completer,
		logger:       logger,
		execDuration: dur,
		tokensUsed:   tokens,
	}
}

// Execute runs one agent invocation for the given user and returns the
// uniform result envelope. Failures inside the agent, returned errors and
// panics alike, are contained and converted into a failure response; they
// never propagate out of Execute.
func (e *Engine) Execute(ctx context.Context, agentID string, input map[string]any, userID uuid.UUID) model.AgentResponse {
	def, ok := e.registry.Get(agentID)
	if !ok {
		// No record is written: the agent never started. The rejected attempt
		// is still logged for operators.
		e.logger.Warn("execute: unknown agent", "agent_id", agentID, "user_id", userID)
		return failure(fmt.Sprintf("unknown agent: %s", agentID))
	}

	if input == nil {
		input = map[string]any{}
	}
	for _, f := range def.Inputs {
		if !f.Required {
			continue
		}
		if _, present := input[f.Name]; !present {
			return failure(fmt.Sprintf("missing required input: %s", f.Name))
		}
	}

	run := model.TaskRun{
		ID:        uuid.New(),
		AgentID:   def.ID,
		UserID:    userID,
		Status:    model.RunStatusRunning,
		Input:     input,
		StartedAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}

	// The audit write is best-effort: the caller still gets a result even if
	// the log is unreachable. Terminal updates are skipped when the initial
	// write failed, so no orphaned running record can exist.
	audited := true
	if err := e.log.CreateRun(ctx, run); err != nil {
		audited = false
		e.logger.Error("execute: audit write failed", "error", err, "agent_id", def.ID, "user_id", userID)
	}

	ec := e.buildContext(ctx, userID)
	start := time.Now()
	result, err := e.invoke(ctx, def, input, ec)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("agent_id", def.ID))
	e.execDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err == nil && ctx.Err() != nil {
		// The agent returned after its deadline expired; record the run as
		// cancelled rather than leaving a stale success.
		err = fmt.Errorf("cancelled: %w", ctx.Err())
	}

	if err != nil {
		msg := err.Error()
		if audited {
			// Terminal writes use a fresh context so a cancelled request
			// cannot also orphan the record.
			if logErr := e.log.FailRun(context.WithoutCancel(ctx), run.ID, msg); logErr != nil {
				e.logger.Error("execute: failed-run audit write failed", "error", logErr, "run_id", run.ID)
			}
		}
		e.logger.Warn("execute: agent failed",
			"agent_id", def.ID,
			"user_id", userID,
			"duration_ms", elapsed.Milliseconds(),
			"error", msg,
		)
		return failure(msg)
	}

	var tokens *int
	if result.TokensUsed > 0 {
		t := result.TokensUsed
		tokens = &t
		e.tokensUsed.Add(ctx, int64(t), attrs)
	}
	if audited {
		if logErr := e.log.CompleteRun(context.WithoutCancel(ctx), run.ID, result.Data, tokens); logErr != nil {
			e.logger.Error("execute: completed-run audit write failed", "error", logErr, "run_id", run.ID)
		}
	}

	e.logger.Info("execute: agent completed",
		"agent_id", def.ID,
		"user_id", userID,
		"duration_ms", elapsed.Milliseconds(),
		"tokens_used", result.TokensUsed,
	)
	return model.AgentResponse{
		Success:    true,
		Data:       result.Data,
		TokensUsed: result.TokensUsed,
	}
}

// buildContext assembles the per-invocation context. The profile lookup is
// best-effort; agents treat a nil profile as an anonymous founder.
func (e *Engine) buildContext(ctx context.Context, userID uuid.UUID) *Context {
	store := e.newStore(userID)
	ec := &Context{
		UserID:    userID,
		Store:     store,
		Completer: e.completer,
		Today:     time.Now().UTC(),
		Logger:    e.logger,
	}
	if profile, err := store.Profile(ctx); err == nil {
		ec.Profile = &profile
	} else {
		e.logger.Debug("execute: profile lookup failed", "error", err, "user_id", userID)
	}
	return ec
}

// invoke runs the agent function, converting panics into errors so a
// misbehaving agent can never take down the request path.
func (e *Engine) invoke(ctx context.Context, def Definition, input map[string]any, ec *Context) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return def.Execute(ctx, input, ec)
}

func failure(msg string) model.AgentResponse {
	return model.AgentResponse{Success: false, Error: msg}
}
