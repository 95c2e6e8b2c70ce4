package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cadence/internal/config"
	"cadence/internal/cycle"
	"cadence/internal/session"
)

// initCmd writes the default config into the workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cadence in the current workspace",
	Long: `Creates <workspace>/.cadence/config.yaml with default settings.
Running it again leaves an existing config untouched.`,
	RunE: runInit,
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Manage the active cycle",
}

var cycleStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new cycle",
	Long: `Starts a cycle from the first day of your last period. Starting a new
cycle while one is active counts the previous one as completed.

Example:
  cadence cycle start --date 2026-03-01 --length 29`,
	RunE: runCycleStart,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the persisted state as JSON",
	RunE:  runExport,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all engagement, cycle and observation data",
	RunE:  runReset,
}

func init() {
	cycleStartCmd.Flags().String("date", "", "First day of last period, YYYY-MM-DD (default: today)")
	cycleStartCmd.Flags().Int("length", 0, "Cycle length in days (default from config)")
	cycleStartCmd.Flags().Int("period", 0, "Period duration in days (default from config)")

	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}

func runInit(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	path := resolveConfigPath(ws)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "cadence already initialized: %s\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized cadence: %s\n", path)
	return nil
}

func runCycleStart(cmd *cobra.Command, args []string) error {
	dateStr, _ := cmd.Flags().GetString("date")
	length, _ := cmd.Flags().GetInt("length")
	period, _ := cmd.Flags().GetInt("period")

	start := time.Now()
	if dateStr != "" {
		parsed, err := time.ParseInLocation(cycle.DateLayout, dateStr, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", dateStr)
		}
		start = parsed
	}

	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		err := s.StartCycle(cycle.Cycle{LastPeriodStart: start, CycleLength: length, PeriodDuration: period})
		if err != nil {
			return err
		}
		active, err := s.ActiveCycle()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cycle started %s (%d days, period %d days)\n",
			active.LastPeriodStart.Format(cycle.DateLayout), active.CycleLength, active.PeriodDuration)
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		snap, err := s.Snapshot()
		if err != nil {
			return err
		}
		return printJSON(cmd, snap)
	})
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to reset without --yes")
	}
	return withSession(cmd, func(ctx context.Context, s *session.Session) error {
		if err := s.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All cadence data reset.")
		return nil
	})
}
