package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cadence/cmd/cadence/ui"
	"cadence/internal/config"
)

// dashboardEventBuffer absorbs bursts such as track + maturity + features.
const dashboardEventBuffer = 32

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live status dashboard",
	Long: `Shows maturity, phase and feature status, refreshed on every session
event. Edits to the persona or guidance settings in config.yaml apply
while the dashboard is open.`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to save state", zap.Error(err))
		}
	}()

	path := resolveConfigPath(resolveWorkspace())
	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		if err := s.ApplyUX(cfg.UX); err != nil {
			logger.Warn("ignoring config reload", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
	}
	defer watcher.Stop()

	ch := s.Subscribe(dashboardEventBuffer)
	defer s.Unsubscribe(ch)

	model := ui.NewDashboard(s, ch, ui.DefaultStyles())
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
