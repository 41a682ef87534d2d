// Package agents holds the built-in agent definitions: parameterized prompt
// templates over the completion provider, registered once at startup.
//
// Each definition is self-contained prompt plumbing; the execution mechanics
// (context, audit, failure containment) live in the agent package.
package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/model"
)

// Agent categories.
const (
	CategoryStrategy     = "Strategy"
	CategoryFundraising  = "Fundraising"
	CategoryProductivity = "Productivity"
)

// Catalog returns the fixed registration list, in display order.
func Catalog() []agent.Definition {
	return []agent.Definition{
		StrategicPlanner(),
		DraftInvestorEmail(),
		PitchFeedback(),
		TaskPrioritizer(),
		WeeklyReview(),
	}
}

// stringInput returns the named input coerced to a string. Numbers are
// formatted rather than rejected; agents receive input as decoded JSON, so
// a timeframe of 12 arrives as float64.
func stringInput(input map[string]any, name string) string {
	v, ok := input[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// profileLine renders the founder profile for a system prompt; the zero
// profile renders an anonymous founder.
func profileLine(p *model.UserProfile) string {
	if p == nil {
		return "The user is a startup founder."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The user is %s, a startup founder", p.Name)
	if p.CompanyName != "" {
		fmt.Fprintf(&b, " building %s", p.CompanyName)
	}
	if p.Stage != "" {
		fmt.Fprintf(&b, " (%s stage)", p.Stage)
	}
	b.WriteString(".")
	return b.String()
}

// parseJSONObject extracts the first JSON object from a completion reply,
// tolerating surrounding prose and markdown code fences. Falls back to
// wrapping the raw text when no object parses, so a sloppy model reply
// degrades instead of failing the run.
func parseJSONObject(text string) map[string]any {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		var out map[string]any
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err == nil {
			return out
		}
	}
	return map[string]any{"text": strings.TrimSpace(text)}
}
