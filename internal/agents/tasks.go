package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/service/completion"
)

// TaskPrioritizer reads the founder's open tasks through the user-scoped
// store and returns a suggested ordering with rationale.
func TaskPrioritizer() agent.Definition {
	return agent.Definition{
		ID:          "task-prioritizer",
		Name:        "Task Prioritizer",
		Description: "Orders your open tasks by impact and urgency.",
		Category:    CategoryProductivity,
		Icon:        "list-ordered",
		Inputs: []agent.InputField{
			{Name: "focus", Description: "Optional focus area, e.g. \"fundraising\""},
		},
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			tasks, err := ec.Store.ListTasks(ctx, agent.TaskFilter{Status: model.TaskStatusOpen, Limit: 50})
			if err != nil {
				return agent.Result{}, fmt.Errorf("loading tasks failed: %w", err)
			}
			if len(tasks) == 0 {
				return agent.Result{Data: map[string]any{
					"ordered": []any{},
					"summary": "No open tasks to prioritize.",
				}}, nil
			}

			var list strings.Builder
			for _, t := range tasks {
				fmt.Fprintf(&list, "- %s", t.Title)
				if t.DueAt != nil {
					fmt.Fprintf(&list, " (due %s)", t.DueAt.Format("2006-01-02"))
				}
				list.WriteString("\n")
			}

			prompt := "Prioritize these tasks:\n" + list.String()
			if focus := stringInput(input, "focus"); focus != "" {
				prompt += "\nCurrent focus: " + focus
			}

			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{
					Role: completion.RoleSystem,
					Content: profileLine(ec.Profile) + " You prioritize a founder's task list by impact and urgency. " +
						"Respond with a JSON object: {\"ordered\": [{\"title\": string, \"reason\": string}], " +
						"\"summary\": string}.",
				},
				{Role: completion.RoleUser, Content: prompt},
			}, completion.Options{MaxTokens: 1000, Temperature: 0.4})
			if err != nil {
				return agent.Result{}, fmt.Errorf("prioritization failed: %w", err)
			}

			return agent.Result{
				Data:       parseJSONObject(got.Text),
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}
}

// WeeklyReview summarizes the past week's task activity.
func WeeklyReview() agent.Definition {
	return agent.Definition{
		ID:          "weekly-review",
		Name:        "Weekly Review",
		Description: "Summarizes last week's progress and suggests next week's focus.",
		Category:    CategoryProductivity,
		Icon:        "calendar",
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			open, err := ec.Store.ListTasks(ctx, agent.TaskFilter{Status: model.TaskStatusOpen, Limit: 50})
			if err != nil {
				return agent.Result{}, fmt.Errorf("loading open tasks failed: %w", err)
			}
			done, err := ec.Store.ListTasks(ctx, agent.TaskFilter{Status: model.TaskStatusDone, Limit: 50})
			if err != nil {
				return agent.Result{}, fmt.Errorf("loading done tasks failed: %w", err)
			}

			weekAgo := ec.Today.Add(-7 * 24 * time.Hour)
			var doneTitles, openTitles []string
			for _, t := range done {
				if t.UpdatedAt.After(weekAgo) {
					doneTitles = append(doneTitles, t.Title)
				}
			}
			for _, t := range open {
				openTitles = append(openTitles, t.Title)
			}

			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{
					Role: completion.RoleSystem,
					Content: profileLine(ec.Profile) + " You run a founder's weekly review. " +
						"Respond with a JSON object: {\"highlights\": [string], \"carryover\": [string], " +
						"\"next_week_focus\": string}.",
				},
				{
					Role: completion.RoleUser,
					Content: fmt.Sprintf("Week ending %s.\nCompleted: %s\nStill open: %s",
						ec.Today.Format("2006-01-02"),
						strings.Join(doneTitles, "; "),
						strings.Join(openTitles, "; ")),
				},
			}, completion.Options{MaxTokens: 800, Temperature: 0.5})
			if err != nil {
				return agent.Result{}, fmt.Errorf("weekly review failed: %w", err)
			}

			return agent.Result{
				Data:       parseJSONObject(got.Text),
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}
}
