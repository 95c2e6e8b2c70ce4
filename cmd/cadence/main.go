package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "cadence - adaptive cycle companion",
	Long: `cadence tracks how you engage, what you observe across your cycle,
and adapts which features, guidance and next steps it offers as your
practice matures.

State lives in <workspace>/.cadence/. Run "cadence init" once to create it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.cadence/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	// Cycle subcommands
	cycleCmd.AddCommand(cycleStartCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(phaseCmd)
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
