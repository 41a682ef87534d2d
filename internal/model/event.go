package model

import (
	"fmt"

	"github.com/google/uuid"
)

// EventType represents the category of a detected proactive event.
type EventType string

const (
	EventStaleTask        EventType = "stale_task"
	EventUpcomingDeadline EventType = "upcoming_deadline"
)

// ProactiveEvent is a domain condition detected for a user, e.g. a task that
// has gone stale or a deadline coming up. Events are mapped to proactive
// messages after fingerprint deduplication.
type ProactiveEvent struct {
	Type     EventType      `json:"type"`
	EntityID uuid.UUID      `json:"entity_id"`
	DedupKey string         `json:"dedup_key"`
	Payload  map[string]any `json:"payload,omitempty"`

	// SuggestedAgentID names an agent that could act on the event;
	// empty when only the canned Message applies.
	SuggestedAgentID string `json:"suggested_agent_id,omitempty"`
	Message          string `json:"message"`
}

// Fingerprint derives the deterministic dedup identity of the event.
// The same underlying condition always yields the same fingerprint, so a
// surfaced event is suppressed until its dedup window elapses.
func (e ProactiveEvent) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s", e.Type, e.EntityID, e.DedupKey)
}

// ProactiveMessage is a deduplicated event ready for display.
type ProactiveMessage struct {
	Fingerprint      string         `json:"fingerprint"`
	Type             EventType      `json:"type"`
	Message          string         `json:"message"`
	SuggestedAgentID string         `json:"suggested_agent_id,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
}
