// Package proactive detects domain events for a user (stale tasks, upcoming
// deadlines) and maps each one to a candidate agent invocation or a canned
// message, deduplicating by fingerprint so the same condition is surfaced
// at most once per dedup window.
package proactive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/storage"
)

// Detector scans one user's state for a single class of events. Each
// detector owns its own query.
type Detector interface {
	Name() string
	Detect(ctx context.Context, userID uuid.UUID) ([]model.ProactiveEvent, error)
}

// TaskLister is the slice of the storage layer the task detectors read.
type TaskLister interface {
	ListTasks(ctx context.Context, userID uuid.UUID, f storage.TaskFilter) ([]model.Task, error)
}

// StaleTaskDetector emits an event for each open task untouched for longer
// than StaleAfter. The dedup key is the task's last-touch date, so a task
// that keeps sitting still re-surfaces once per further idle period.
type StaleTaskDetector struct {
	Tasks      TaskLister
	StaleAfter time.Duration
}

// Name identifies the detector in logs.
func (d *StaleTaskDetector) Name() string { return "stale_tasks" }

// Detect scans for stale open tasks.
func (d *StaleTaskDetector) Detect(ctx context.Context, userID uuid.UUID) ([]model.ProactiveEvent, error) {
	cutoff := time.Now().UTC().Add(-d.StaleAfter)
	tasks, err := d.Tasks.ListTasks(ctx, userID, storage.TaskFilter{
		Status:      model.TaskStatusOpen,
		StaleBefore: &cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("proactive: stale tasks: %w", err)
	}

	var events []model.ProactiveEvent
	for _, t := range tasks {
		idleDays := int(time.Since(t.UpdatedAt).Hours() / 24)
		events = append(events, model.ProactiveEvent{
			Type:     model.EventStaleTask,
			EntityID: t.ID,
			DedupKey: t.UpdatedAt.UTC().Format(time.DateOnly),
			Payload: map[string]any{
				"task_title": t.Title,
				"idle_days":  idleDays,
			},
			SuggestedAgentID: "task-prioritizer",
			Message:          fmt.Sprintf("%q hasn't moved in %d days. Want help re-prioritizing?", t.Title, idleDays),
		})
	}
	return events, nil
}

// DeadlineDetector emits an event for each open task due within Horizon.
// The dedup key is the due date, so each approaching deadline surfaces once.
type DeadlineDetector struct {
	Tasks   TaskLister
	Horizon time.Duration
}

// Name identifies the detector in logs.
func (d *DeadlineDetector) Name() string { return "upcoming_deadlines" }

// Detect scans for tasks with deadlines inside the horizon.
func (d *DeadlineDetector) Detect(ctx context.Context, userID uuid.UUID) ([]model.ProactiveEvent, error) {
	limit := time.Now().UTC().Add(d.Horizon)
	tasks, err := d.Tasks.ListTasks(ctx, userID, storage.TaskFilter{
		Status:    model.TaskStatusOpen,
		DueBefore: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("proactive: upcoming deadlines: %w", err)
	}

	var events []model.ProactiveEvent
	for _, t := range tasks {
		if t.DueAt == nil {
			continue
		}
		daysLeft := int(time.Until(*t.DueAt).Hours() / 24)
		msg := fmt.Sprintf("%q is due in %d days.", t.Title, daysLeft)
		if daysLeft < 0 {
			msg = fmt.Sprintf("%q is overdue.", t.Title)
		}
		events = append(events, model.ProactiveEvent{
			Type:     model.EventUpcomingDeadline,
			EntityID: t.ID,
			DedupKey: t.DueAt.UTC().Format(time.DateOnly),
			Payload: map[string]any{
				"task_title": t.Title,
				"days_left":  daysLeft,
			},
			Message: msg,
		})
	}
	return events, nil
}
