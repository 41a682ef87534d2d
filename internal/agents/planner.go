package agents

import (
	"context"
	"fmt"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/service/completion"
)

// StrategicPlanner turns a goal and a timeframe into a milestone plan.
func StrategicPlanner() agent.Definition {
	return agent.Definition{
		ID:          "strategic-planner",
		Name:        "Strategic Planner",
		Description: "Breaks a company goal into a month-by-month milestone plan.",
		Category:    CategoryStrategy,
		Icon:        "map",
		Inputs: []agent.InputField{
			{Name: "goal", Description: "The goal to plan for", Required: true},
			{Name: "timeframe", Description: "Planning horizon in months", Required: true},
		},
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			goal := stringInput(input, "goal")
			months := stringInput(input, "timeframe")

			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{
					Role: completion.RoleSystem,
					Content: profileLine(ec.Profile) + " You are a pragmatic startup strategy advisor. " +
						"Respond with a JSON object: {\"summary\": string, \"milestones\": " +
						"[{\"month\": number, \"title\": string, \"actions\": [string]}]}.",
				},
				{
					Role: completion.RoleUser,
					Content: fmt.Sprintf("Today is %s. Build a %s-month plan for this goal: %s",
						ec.Today.Format("2006-01-02"), months, goal),
				},
			}, completion.Options{MaxTokens: 1500, Temperature: 0.7})
			if err != nil {
				return agent.Result{}, fmt.Errorf("strategic planning failed: %w", err)
			}

			return agent.Result{
				Data:       parseJSONObject(got.Text),
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}
}
