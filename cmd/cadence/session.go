package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/session"
	"cadence/internal/store"
)

// resolveWorkspace returns the --workspace flag or the current directory.
func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func resolveConfigPath(ws string) string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath(ws)
}

// loadConfig reads and validates the workspace config, then configures
// category logging from it. --verbose forces debug logging on.
func loadConfig(ws string) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath(ws))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
	}
	if verbose {
		opts.DebugMode = true
		opts.Level = "debug"
	}
	if err := logging.Configure(opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads config, opens the configured store and restores the
// session. The caller must Close it.
func openSession(ctx context.Context) (*session.Session, error) {
	ws := resolveWorkspace()
	cfg, err := loadConfig(ws)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store, cfg.StorePath(ws))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s, err := session.New(ctx, session.Options{Config: cfg, Store: st})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Debug("session opened", zap.String("workspace", ws), zap.String("backend", cfg.Store.Backend))
	return s, nil
}

// withSession runs fn against an open session with the command timeout,
// closing it (and flushing pending writes) afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to save state: %w", err)
	}
	return runErr
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
