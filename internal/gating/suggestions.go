package gating

import (
	"fmt"
	"math"
	"sort"
)

// Priority ranks a progression suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Suggestion points the user at the cheapest way to unlock a feature.
type Suggestion struct {
	FeatureKey string   `json:"feature_key"`
	Category   string   `json:"category"`
	Progress   int      `json:"progress"`
	Metric     string   `json:"metric"`
	Action     string   `json:"action"`
	Priority   Priority `json:"priority"`
}

// MaxSuggestions bounds ProgressionSuggestions.
const MaxSuggestions = 3

// ProgressionSuggestions returns up to three locked features that are at
// least half unlocked, most progressed first.
func ProgressionSuggestions(ev *Evaluation) []Suggestion {
	if ev == nil {
		return nil
	}

	candidates := make([]Result, 0, len(ev.Features))
	for _, key := range ev.Order {
		res := ev.Features[key]
		if res.Available || res.Progress < 50 || res.NextUnmet == nil {
			continue
		}
		candidates = append(candidates, res)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Progress != candidates[j].Progress {
			return candidates[i].Progress > candidates[j].Progress
		}
		return candidates[i].Key < candidates[j].Key
	})
	if len(candidates) > MaxSuggestions {
		candidates = candidates[:MaxSuggestions]
	}

	out := make([]Suggestion, 0, len(candidates))
	for _, res := range candidates {
		priority := PriorityMedium
		if res.Progress > 70 {
			priority = PriorityHigh
		}
		out = append(out, Suggestion{
			FeatureKey: res.Key,
			Category:   res.Category,
			Progress:   res.Progress,
			Metric:     res.NextUnmet.Metric,
			Action:     RenderAction(*res.NextUnmet),
			Priority:   priority,
		})
	}
	return out
}

// RenderAction turns an unmet check into a human-readable step.
func RenderAction(c Check) string {
	if c.Metric == MetricMaturityLevel {
		return fmt.Sprintf(maturityMessage, "next")
	}
	remaining := int(math.Ceil(c.Required - math.Max(0, c.Current)))
	if remaining < 1 {
		remaining = 1
	}
	if msg, ok := actionMessages[c.Metric]; ok {
		return fmt.Sprintf(msg, remaining)
	}
	return fmt.Sprintf("Increase %s by %d", c.Metric, remaining)
}
