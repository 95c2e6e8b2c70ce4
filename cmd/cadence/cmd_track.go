package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cadence/internal/cycle"
	"cadence/internal/session"
	"cadence/internal/types"
)

var trackCmd = &cobra.Command{
	Use:   "track [action]",
	Short: "Record an engagement action",
	Long: `Records one user action and recomputes maturity.

Actions:
  conversation_started, conversation_completed, notebook_entry,
  cycle_day_tracked, insight_saved, vignette_engaged, phase_explored,
  autonomy_signal, cycle_completed, session_time

Examples:
  cadence track notebook_entry
  cadence track phase_explored --phase luteal
  cadence track session_time --seconds 300`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Record how you feel today",
	Long: `Stores a self-report against the active cycle. Symptoms and mood are
picked out of --notes when not given explicitly.

Example:
  cadence observe --energy 2 --mood anxious --symptom bloating --notes "slow day"`,
	RunE: runObserve,
}

var correctCmd = &cobra.Command{
	Use:   "correct [phase]",
	Short: "Tell cadence which phase you think you are in today",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorrect,
}

var phaseCmd = &cobra.Command{
	Use:   "phase",
	Short: "Show today's phase estimate",
	RunE:  runPhase,
}

func init() {
	trackCmd.Flags().String("phase", "", "Phase for phase_explored")
	trackCmd.Flags().Int64("seconds", 0, "Duration for session_time")

	observeCmd.Flags().String("feeling", "", "Overall feeling, 1-5")
	observeCmd.Flags().String("energy", "", "Energy level, 1-5")
	observeCmd.Flags().String("notes", "", "Free-text notes")
	observeCmd.Flags().StringSlice("symptom", nil, "Symptom (repeatable)")
	observeCmd.Flags().String("mood", "", "Mood word")

	phaseCmd.Flags().Bool("json", false, "Print the inference as JSON")
}

func runTrack(cmd *cobra.Command, args []string) error {
	action := types.ActionType(strings.ToLower(strings.TrimSpace(args[0])))
	if !action.Known() {
		logger.Warn("unknown action, only daily activity is recorded", zap.String("action", string(action)))
	}

	metadata := types.Metadata{}
	if raw, _ := cmd.Flags().GetString("phase"); raw != "" {
		phase, ok := types.ParsePhase(raw)
		if !ok {
			return fmt.Errorf("unknown phase %q (valid: menstrual, follicular, ovulatory, luteal)", raw)
		}
		metadata["phase"] = string(phase)
	}
	if secs, _ := cmd.Flags().GetInt64("seconds"); secs > 0 {
		metadata["seconds"] = secs
	}

	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		tr, err := s.TrackAction(action, metadata)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tracked %s. Maturity: %s (%d%%)\n", action, tr.Current.Level, tr.Current.Confidence)
		if tr.Changed() {
			fmt.Fprintf(out, "Maturity changed: %s -> %s\n", tr.Previous.Level, tr.Current.Level)
		}
		return nil
	})
}

func runObserve(cmd *cobra.Command, args []string) error {
	var in cycle.ObservationInput
	flags := cmd.Flags()
	if flags.Changed("feeling") {
		v, _ := flags.GetString("feeling")
		in.Feeling = cycle.Level(cycle.ParseLevel(v))
	}
	if flags.Changed("energy") {
		v, _ := flags.GetString("energy")
		in.Energy = cycle.Level(cycle.ParseLevel(v))
	}
	in.Notes, _ = flags.GetString("notes")
	in.Symptoms, _ = flags.GetStringSlice("symptom")
	in.Mood, _ = flags.GetString("mood")

	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		res, err := s.RecordObservation(in)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("no active cycle: run `cadence cycle start` first")
		}
		obs := res.Observation
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s observation for cycle day %d. Phase: %s (%s)\n",
			res.Quality, obs.CycleDay, res.Phase, res.Mode)
		return nil
	})
}

func runCorrect(cmd *cobra.Command, args []string) error {
	phase, ok := types.ParsePhase(args[0])
	if !ok {
		return fmt.Errorf("unknown phase %q (valid: menstrual, follicular, ovulatory, luteal)", args[0])
	}
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		res, err := s.CorrectPhase(phase)
		if err != nil {
			return err
		}
		if res.Message == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "That matches the prediction: %s.\n", phase)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	})
}

func runPhase(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		inf, err := s.CurrentPhase()
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, inf)
		}
		out := cmd.OutOrStdout()
		if inf.Phase == "" {
			fmt.Fprintln(out, "No active cycle.")
			return nil
		}
		fmt.Fprintf(out, "Phase: %s (%s, %.0f%% confidence)\n", inf.Phase, inf.Method, inf.Confidence*100)
		for _, sig := range inf.Signals {
			fmt.Fprintf(out, "  %s %q -> %s\n", sig.Type, sig.Value, sig.Phase)
		}
		return nil
	})
}
