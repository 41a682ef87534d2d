package agents

import (
	"context"
	"fmt"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/service/completion"
)

// DraftInvestorEmail writes an outreach or update email to an investor.
func DraftInvestorEmail() agent.Definition {
	return agent.Definition{
		ID:          "draft-investor-email",
		Name:        "Investor Email Drafter",
		Description: "Drafts a concise, personalized email to an investor.",
		Category:    CategoryFundraising,
		Icon:        "mail",
		Inputs: []agent.InputField{
			{Name: "investor_name", Description: "Who the email is addressed to", Required: true},
			{Name: "purpose", Description: "Outreach, follow-up, or monthly update", Required: true},
			{Name: "notes", Description: "Extra context to weave in"},
		},
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			investor := stringInput(input, "investor_name")
			purpose := stringInput(input, "purpose")
			notes := stringInput(input, "notes")

			prompt := fmt.Sprintf("Draft a %s email to %s.", purpose, investor)
			if notes != "" {
				prompt += " Context: " + notes
			}

			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{
					Role: completion.RoleSystem,
					Content: profileLine(ec.Profile) + " You write investor emails: short, specific, no fluff. " +
						"Respond with a JSON object: {\"subject\": string, \"body\": string}.",
				},
				{Role: completion.RoleUser, Content: prompt},
			}, completion.Options{MaxTokens: 800, Temperature: 0.8})
			if err != nil {
				return agent.Result{}, fmt.Errorf("email drafting failed: %w", err)
			}

			return agent.Result{
				Data:       parseJSONObject(got.Text),
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}
}

// PitchFeedback critiques a pitch or elevator summary.
func PitchFeedback() agent.Definition {
	return agent.Definition{
		ID:          "pitch-feedback",
		Name:        "Pitch Feedback",
		Description: "Reviews a pitch and returns strengths, weaknesses, and rewrites.",
		Category:    CategoryFundraising,
		Icon:        "message-circle",
		Inputs: []agent.InputField{
			{Name: "pitch", Description: "The pitch text to review", Required: true},
		},
		Execute: func(ctx context.Context, input map[string]any, ec *agent.Context) (agent.Result, error) {
			got, err := ec.Completer.Complete(ctx, []completion.Message{
				{
					Role: completion.RoleSystem,
					Content: profileLine(ec.Profile) + " You are a seed-stage investor giving blunt pitch feedback. " +
						"Respond with a JSON object: {\"strengths\": [string], \"weaknesses\": [string], " +
						"\"suggested_rewrite\": string}.",
				},
				{Role: completion.RoleUser, Content: stringInput(input, "pitch")},
			}, completion.Options{MaxTokens: 1000, Temperature: 0.6})
			if err != nil {
				return agent.Result{}, fmt.Errorf("pitch review failed: %w", err)
			}

			return agent.Result{
				Data:       parseJSONObject(got.Text),
				TokensUsed: got.TokensUsed,
			}, nil
		},
	}
}
