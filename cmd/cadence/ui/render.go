package ui

import (
	"fmt"
	"strings"

	"cadence/internal/composer"
	"cadence/internal/engagement"
	"cadence/internal/gating"
	"cadence/internal/observation"
)

// Source is the read side of a session.
type Source interface {
	Maturity() (engagement.MaturityState, error)
	EngagementScore() (int, error)
	NextMilestone() (*engagement.Milestone, error)
	CurrentPhase() (observation.Inference, error)
	EvaluateAllFeatures() (*gating.Evaluation, error)
	Configuration() (composer.Configuration, error)
}

// StatusView is everything the status screen shows.
type StatusView struct {
	Maturity   engagement.MaturityState
	Score      int
	Milestone  *engagement.Milestone
	Phase      observation.Inference
	Evaluation *gating.Evaluation
	Config     composer.Configuration
}

// LoadStatus reads a StatusView from src.
func LoadStatus(src Source) (StatusView, error) {
	var v StatusView
	var err error
	if v.Maturity, err = src.Maturity(); err != nil {
		return v, err
	}
	if v.Score, err = src.EngagementScore(); err != nil {
		return v, err
	}
	if v.Milestone, err = src.NextMilestone(); err != nil {
		return v, err
	}
	if v.Phase, err = src.CurrentPhase(); err != nil {
		return v, err
	}
	if v.Evaluation, err = src.EvaluateAllFeatures(); err != nil {
		return v, err
	}
	if v.Config, err = src.Configuration(); err != nil {
		return v, err
	}
	return v, nil
}

// RenderStatus renders the status screen.
func RenderStatus(s Styles, v StatusView) string {
	var sb strings.Builder

	sb.WriteString(s.Header.Render("cadence"))
	sb.WriteString("\n\n")

	sb.WriteString(s.Title.Render("Practice"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Maturity:    %s (%d%% confidence)\n", s.Bold.Render(string(v.Maturity.Level)), v.Maturity.Confidence))
	sb.WriteString(fmt.Sprintf("Engagement:  %s\n", s.RenderProgress(v.Score, 20)))
	if m := v.Milestone; m != nil {
		sb.WriteString(s.Muted.Render(fmt.Sprintf("Next: %s in %d day(s), %d conversation(s), %d entr(ies), %d cycle(s)",
			m.Target, m.Days, m.Conversations, m.Entries, m.Cycles)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(s.Title.Render("Cycle"))
	sb.WriteString("\n")
	if v.Phase.Phase == "" {
		sb.WriteString(s.Muted.Render("No active cycle. Run `cadence cycle start`."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(fmt.Sprintf("Phase:       %s %s\n", s.PhaseBadge(v.Phase.Phase),
			s.Muted.Render(fmt.Sprintf("%s, %.0f%% confidence", v.Phase.Method, v.Phase.Confidence*100))))
	}
	sb.WriteString("\n")

	if v.Evaluation != nil {
		sb.WriteString(s.Title.Render(fmt.Sprintf("Features (%d/%d)", v.Evaluation.Summary.Available, v.Evaluation.Summary.Total)))
		sb.WriteString("\n")
		sb.WriteString(RenderFeatures(s, v.Evaluation))
		sb.WriteString("\n")
	}

	if len(v.Config.NextSteps) > 0 {
		sb.WriteString(s.Title.Render("Next steps"))
		sb.WriteString("\n")
		for _, step := range v.Config.NextSteps {
			sb.WriteString("  • " + step.Text + "\n")
		}
	}

	return sb.String()
}

// RenderFeatures lists every feature in registry order.
func RenderFeatures(s Styles, ev *gating.Evaluation) string {
	var sb strings.Builder
	for _, key := range ev.Order {
		res := ev.Features[key]
		mark := s.Muted.Render("○")
		if res.Available {
			mark = s.Success.Render("●")
		}
		line := fmt.Sprintf("  %s %-20s %s", mark, key, s.RenderProgress(res.Progress, 10))
		if !res.Available && res.NextUnmet != nil {
			line += "  " + s.Muted.Render(gating.RenderAction(*res.NextUnmet))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// GuidanceMarkdown formats guidance for a glamour renderer.
func GuidanceMarkdown(phaseLabel string, g observation.Guidance) string {
	var sb strings.Builder
	if phaseLabel != "" {
		sb.WriteString("# " + strings.ToUpper(phaseLabel[:1]) + phaseLabel[1:] + " phase\n\n")
	}
	sb.WriteString(g.Message + "\n\n")
	if g.Action != "" {
		sb.WriteString("**Try:** " + g.Action + "\n\n")
	}
	if len(g.Insights) > 0 {
		sb.WriteString("## Insights\n\n")
		for _, insight := range g.Insights {
			sb.WriteString("- " + insight + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("_Confidence: %.0f%%_\n", g.Confidence*100))
	return sb.String()
}
