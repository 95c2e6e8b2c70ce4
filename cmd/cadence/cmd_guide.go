package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"cadence/cmd/cadence/ui"
	"cadence/internal/gating"
	"cadence/internal/session"
	"cadence/internal/types"
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show guidance for today's phase",
	RunE:  runGuide,
}

var featuresCmd = &cobra.Command{
	Use:   "features [key]",
	Short: "List features and what unlocks them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeatures,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest what to do or log next",
	RunE:  runSuggest,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show maturity, phase and feature status",
	RunE:  runStatus,
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Print the adaptive UI configuration as JSON",
	RunE:  runCompose,
}

func init() {
	guideCmd.Flags().String("phase", "", "Phase to show guidance for (default: today's)")
	guideCmd.Flags().Bool("plain", false, "Print raw markdown")
}

func runGuide(cmd *cobra.Command, args []string) error {
	var phase types.Phase
	if v, _ := cmd.Flags().GetString("phase"); v != "" {
		p, ok := types.ParsePhase(v)
		if !ok {
			return fmt.Errorf("unknown phase %q", v)
		}
		phase = p
	}
	plain, _ := cmd.Flags().GetBool("plain")

	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		label := phase
		if label == "" {
			inf, err := s.CurrentPhase()
			if err != nil {
				return err
			}
			label = inf.Phase
		}
		g, err := s.ObservationGuidance(phase)
		if err != nil {
			return err
		}

		md := ui.GuidanceMarkdown(string(label), g)
		if plain {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		out, err := renderer.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render guidance: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	})
}

func runFeatures(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		if len(args) == 1 {
			res, err := s.EvaluateFeature(args[0])
			if err != nil {
				return err
			}
			if !res.Found {
				return fmt.Errorf("unknown feature %q", args[0])
			}
			return printJSON(cmd, res)
		}

		ev, err := s.EvaluateAllFeatures()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderFeatures(ui.DefaultStyles(), ev))
		return nil
	})
}

func runSuggest(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		out := cmd.OutOrStdout()

		suggestions, err := s.ProgressionSuggestions()
		if err != nil {
			return err
		}
		prompts, err := s.SuggestedObservations()
		if err != nil {
			return err
		}
		if len(suggestions) == 0 && len(prompts) == 0 {
			fmt.Fprintln(out, "Nothing to suggest right now.")
			return nil
		}

		for _, sg := range suggestions {
			marker := " "
			if sg.Priority == gating.PriorityHigh {
				marker = "!"
			}
			fmt.Fprintf(out, "%s %s (%d%%): %s\n", marker, sg.FeatureKey, sg.Progress, sg.Action)
		}
		for _, p := range prompts {
			fmt.Fprintf(out, "? %s %v\n", p.Question, p.Options)
		}
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		v, err := ui.LoadStatus(s)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderStatus(ui.DefaultStyles(), v))
		return nil
	})
}

func runCompose(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		cfg, err := s.Configuration()
		if err != nil {
			return err
		}
		return printJSON(cmd, cfg)
	})
}
