package model_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundermate/foundermate/internal/model"
)

func TestValidateAgentID_Valid(t *testing.T) {
	valid := []string{
		"agent",
		"strategic-planner",
		"draft-investor-email",
		"a",
		"agent2",
		strings.Repeat("a", 64),
	}
	for _, id := range valid {
		require.NoError(t, model.ValidateAgentID(id), "expected valid: %q", id)
	}
}

func TestValidateAgentID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"empty", "", "agent_id is required"},
		{"too long", strings.Repeat("a", 65), "at most 64"},
		{"uppercase", "Planner", "invalid character"},
		{"space", "has space", "invalid character"},
		{"underscore", "my_agent", "invalid character"},
		{"slash", "a/b", "invalid character"},
		{"unicode", "agené", "invalid character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateAgentID(tt.id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProactiveEventFingerprint(t *testing.T) {
	id := uuid.New()
	e := model.ProactiveEvent{
		Type:     model.EventUpcomingDeadline,
		EntityID: id,
		DedupKey: "2026-09-04",
	}

	assert.Equal(t, "upcoming_deadline:"+id.String()+":2026-09-04", e.Fingerprint())

	// Same condition, same fingerprint; payload and message do not matter.
	e2 := e
	e2.Message = "different text"
	e2.Payload = map[string]any{"days_left": 3}
	assert.Equal(t, e.Fingerprint(), e2.Fingerprint())

	// Different dedup key means a different window.
	e3 := e
	e3.DedupKey = "2026-09-11"
	assert.NotEqual(t, e.Fingerprint(), e3.Fingerprint())
}

func TestTaskRunTerminal(t *testing.T) {
	tests := []struct {
		status model.RunStatus
		want   bool
	}{
		{model.RunStatusPending, false},
		{model.RunStatusRunning, false},
		{model.RunStatusCompleted, true},
		{model.RunStatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := model.TaskRun{Status: tt.status}
			assert.Equal(t, tt.want, r.Terminal())
		})
	}
}
