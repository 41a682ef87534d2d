package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundermate/foundermate/internal/agent"
)

func noopExecute(_ context.Context, _ map[string]any, _ *agent.Context) (agent.Result, error) {
	return agent.Result{Data: map[string]any{}}, nil
}

func def(id, category string) agent.Definition {
	return agent.Definition{
		ID:       id,
		Name:     id,
		Category: category,
		Execute:  noopExecute,
	}
}

func TestNewRegistry_RejectsDuplicateID(t *testing.T) {
	_, err := agent.NewRegistry(def("planner", "Strategy"), def("planner", "Sales"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate agent id "planner"`)
}

func TestNewRegistry_RejectsInvalidID(t *testing.T) {
	_, err := agent.NewRegistry(def("Not Valid", "Strategy"))
	require.Error(t, err)
}

func TestNewRegistry_RejectsMissingExecute(t *testing.T) {
	_, err := agent.NewRegistry(agent.Definition{ID: "planner"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute function is required")
}

func TestRegistry_Get(t *testing.T) {
	r, err := agent.NewRegistry(def("planner", "Strategy"), def("reviewer", "Productivity"))
	require.NoError(t, err)

	got, ok := r.Get("planner")
	require.True(t, ok)
	assert.Equal(t, "planner", got.ID)

	_, ok = r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_AllPreservesRegistrationOrder(t *testing.T) {
	r, err := agent.NewRegistry(
		def("c-agent", "One"),
		def("a-agent", "Two"),
		def("b-agent", "One"),
	)
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c-agent", all[0].ID)
	assert.Equal(t, "a-agent", all[1].ID)
	assert.Equal(t, "b-agent", all[2].ID)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_AllByCategory(t *testing.T) {
	r, err := agent.NewRegistry(
		def("c-agent", "Strategy"),
		def("a-agent", "Productivity"),
		def("b-agent", "Strategy"),
	)
	require.NoError(t, err)

	strategy := r.AllByCategory("Strategy")
	require.Len(t, strategy, 2)
	assert.Equal(t, "c-agent", strategy[0].ID)
	assert.Equal(t, "b-agent", strategy[1].ID)

	// Unknown category is an empty slice, never an error or nil.
	sales := r.AllByCategory("Sales")
	require.NotNil(t, sales)
	assert.Empty(t, sales)
}
