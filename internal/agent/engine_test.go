package agent_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/service/completion"
)

// memLog is an in-memory RunLog capturing the engine's audit writes.
type memLog struct {
	mu        sync.Mutex
	runs      map[uuid.UUID]*model.TaskRun
	createErr error
}

func newMemLog() *memLog {
	return &memLog{runs: make(map[uuid.UUID]*model.TaskRun)}
}

func (l *memLog) CreateRun(_ context.Context, run model.TaskRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	r := run
	l.runs[run.ID] = &r
	return nil
}

func (l *memLog) CompleteRun(_ context.Context, id uuid.UUID, output map[string]any, tokensUsed *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[id]
	if !ok {
		return errors.New("run not found")
	}
	now := time.Now().UTC()
	r.Status = model.RunStatusCompleted
	r.Output = output
	r.TokensUsed = tokensUsed
	r.CompletedAt = &now
	return nil
}

func (l *memLog) FailRun(_ context.Context, id uuid.UUID, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[id]
	if !ok {
		return errors.New("run not found")
	}
	now := time.Now().UTC()
	r.Status = model.RunStatusFailed
	r.Error = &errMsg
	r.CompletedAt = &now
	return nil
}

func (l *memLog) all() []model.TaskRun {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.TaskRun, 0, len(l.runs))
	for _, r := range l.runs {
		out = append(out, *r)
	}
	return out
}

// memStore is a stub user-scoped store.
type memStore struct {
	userID uuid.UUID
	tasks  []model.Task
}

func (s *memStore) UserID() uuid.UUID { return s.userID }

func (s *memStore) ListTasks(_ context.Context, _ agent.TaskFilter) ([]model.Task, error) {
	return s.tasks, nil
}

func (s *memStore) Profile(_ context.Context) (model.UserProfile, error) {
	return model.UserProfile{ID: s.userID, Name: "Test Founder"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, log agent.RunLog, completer completion.Provider, defs ...agent.Definition) *agent.Engine {
	t.Helper()
	r, err := agent.NewRegistry(defs...)
	require.NoError(t, err)
	newStore := func(userID uuid.UUID) agent.Store { return &memStore{userID: userID} }
	return agent.NewEngine(r, log, newStore, completer, testLogger())
}

func TestEngine_ExecuteSuccess(t *testing.T) {
	log := newMemLog()
	userID := uuid.New()

	planner := agent.Definition{
		ID:       "strategic-planner",
		Name:     "Strategic Planner",
		Category: "Strategy",
		Inputs: []agent.InputField{
			{Name: "goal", Required: true},
			{Name: "timeframe", Required: true},
		},
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			require.Equal(t, userID, ec.UserID)
			require.NotNil(t, ec.Store)
			require.Equal(t, userID, ec.Store.UserID())
			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{Role: completion.RoleUser, Content: fmt.Sprint(input["goal"])},
			}, completion.Options{})
			if err != nil {
				return agent.Result{}, err
			}
			return agent.Result{
				Data:       map[string]any{"plan": got.Text},
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}

	e := newTestEngine(t, log, &completion.StaticProvider{Text: "<plan JSON>", Tokens: 300}, planner)
	resp := e.Execute(context.Background(), "strategic-planner",
		map[string]any{"goal": "raise seed round", "timeframe": 12}, userID)

	require.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "<plan JSON>", resp.Data["plan"])
	assert.Equal(t, 300, resp.TokensUsed)

	runs := log.all()
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "strategic-planner", run.AgentID)
	assert.Equal(t, userID, run.UserID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	require.NotNil(t, run.TokensUsed)
	assert.Equal(t, 300, *run.TokensUsed)
	require.NotNil(t, run.CompletedAt)
}

func TestEngine_UnknownAgent(t *testing.T) {
	log := newMemLog()
	e := newTestEngine(t, log, &completion.StaticProvider{}, def("planner", "Strategy"))

	resp := e.Execute(context.Background(), "nonexistent-agent", map[string]any{}, uuid.New())

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown")
	assert.Nil(t, resp.Data)
	// No record at all: the agent never started.
	assert.Empty(t, log.all())
}

func TestEngine_MissingRequiredInput(t *testing.T) {
	log := newMemLog()
	d := def("planner", "Strategy")
	d.Inputs = []agent.InputField{{Name: "goal", Required: true}}
	e := newTestEngine(t, log, &completion.StaticProvider{}, d)

	resp := e.Execute(context.Background(), "planner", map[string]any{}, uuid.New())

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "missing required input: goal")
	assert.Empty(t, log.all())
}

func TestEngine_AgentErrorContained(t *testing.T) {
	log := newMemLog()
	d := agent.Definition{
		ID: "draft-investor-email", Name: "Email", Category: "Fundraising",
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			_, err := ec.Completer.Complete(ctx, nil, completion.Options{})
			return agent.Result{}, err
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{Err: errors.New("network failure")}, d)

	resp := e.Execute(context.Background(), "draft-investor-email", map[string]any{}, uuid.New())

	require.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, resp.Data)

	runs := log.all()
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)
	assert.Contains(t, *runs[0].Error, "network failure")
	require.NotNil(t, runs[0].CompletedAt)
}

func TestEngine_AgentPanicContained(t *testing.T) {
	log := newMemLog()
	d := agent.Definition{
		ID: "panicky", Name: "Panicky", Category: "Test",
		Execute: func(_ context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
			panic("boom")
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{}, d)

	var resp model.AgentResponse
	require.NotPanics(t, func() {
		resp = e.Execute(context.Background(), "panicky", nil, uuid.New())
	})

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "boom")

	runs := log.all()
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

func TestEngine_CancelledContextRecordsFailure(t *testing.T) {
	log := newMemLog()
	d := agent.Definition{
		ID: "slow", Name: "Slow", Category: "Test",
		Execute: func(ctx context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
			<-ctx.Done()
			// Agent ignores the cancellation and reports success anyway.
			return agent.Result{Data: map[string]any{"ok": true}}, nil
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{}, d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := e.Execute(ctx, "slow", nil, uuid.New())

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "cancelled")

	runs := log.all()
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt, "cancelled run must not stay running")
}

func TestEngine_AuditWriteFailureDoesNotFailCaller(t *testing.T) {
	log := newMemLog()
	log.createErr = errors.New("storage unreachable")

	d := agent.Definition{
		ID: "planner", Name: "Planner", Category: "Strategy",
		Execute: func(_ context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
			return agent.Result{Data: map[string]any{"plan": "x"}}, nil
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{}, d)

	resp := e.Execute(context.Background(), "planner", nil, uuid.New())
	require.True(t, resp.Success)
	assert.Equal(t, "x", resp.Data["plan"])
}

func TestEngine_ResultInvariant(t *testing.T) {
	// success=true implies data set and error unset; success=false the inverse.
	log := newMemLog()
	ok := agent.Definition{
		ID: "ok-agent", Name: "OK", Category: "Test",
		Execute: func(_ context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
			return agent.Result{Data: map[string]any{"v": 1}}, nil
		},
	}
	bad := agent.Definition{
		ID: "bad-agent", Name: "Bad", Category: "Test",
		Execute: func(_ context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
			return agent.Result{}, errors.New("nope")
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{}, ok, bad)

	succ := e.Execute(context.Background(), "ok-agent", nil, uuid.New())
	assert.True(t, succ.Success)
	assert.NotNil(t, succ.Data)
	assert.Empty(t, succ.Error)

	fail := e.Execute(context.Background(), "bad-agent", nil, uuid.New())
	assert.False(t, fail.Success)
	assert.Nil(t, fail.Data)
	assert.NotEmpty(t, fail.Error)
}

func TestEngine_ConcurrentExecutions(t *testing.T) {
	log := newMemLog()
	d := agent.Definition{
		ID: "planner", Name: "Planner", Category: "Strategy",
		Execute: func(_ context.Context, _ map[string]any, ec *agent.Context) (agent.Result, error) {
			return agent.Result{Data: map[string]any{"user": ec.UserID.String()}}, nil
		},
	}
	e := newTestEngine(t, log, &completion.StaticProvider{}, d)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			resp := e.Execute(context.Background(), "planner", nil, userID)
			assert.True(t, resp.Success)
			assert.Equal(t, userID.String(), resp.Data["user"])
		}()
	}
	wg.Wait()

	// Every invocation that started got exactly one terminal record.
	runs := log.all()
	require.Len(t, runs, n)
	for _, r := range runs {
		assert.True(t, r.Terminal(), "run %s left in status %s", r.ID, r.Status)
	}
}
