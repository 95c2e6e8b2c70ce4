// Package logging provides config-driven categorized logging for cadence.
// Each category is a named child of a single zap logger. Logging is controlled
// by logging.debug_mode in .cadence/config.yaml - when false, every logger is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup, config, store selection
	CategoryEngagement  Category = "engagement"  // Action tracking, maturity recompute
	CategoryGating      Category = "gating"      // Feature evaluation, cache hits/misses
	CategoryCycle       Category = "cycle"       // Cycle state, observation ring buffer
	CategoryObservation Category = "observation" // Phase inference, patterns, corrections
	CategoryComposer    Category = "composer"    // Adaptive configuration
	CategorySession     Category = "session"     // Pipeline, notification, persistence hand-off
	CategoryStore       Category = "store"       // Durable store operations
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // empty = stderr
	DebugMode  bool            // master toggle
	Categories map[string]bool // per-category toggles; missing = enabled
}

// Logger is a printf-style category logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	options Options
	loggers = make(map[Category]*Logger)
)

// Configure builds the process logger from opts. With DebugMode off every
// category logger becomes a no-op.
func Configure(opts Options) error {
	if !opts.DebugMode {
		SetLogger(zap.NewNop(), opts)
		return nil
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encoding := "json"
	if opts.Format == "console" || opts.Format == "text" {
		encoding = "console"
	}

	output := "stderr"
	if opts.File != "" {
		output = opts.File
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(l, opts)
	Get(CategoryBoot).Debug("logging configured: level=%s format=%s output=%s", level, encoding, output)
	return nil
}

// SetLogger installs l as the base logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger, opts Options) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	options = opts
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !options.DebugMode {
		return false
	}
	if options.Categories == nil {
		return true
	}
	enabled, exists := options.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	z := zap.NewNop()
	if categoryEnabledLocked(category) {
		z = base.Named(string(category))
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Category returns the logger's category.
func (l *Logger) Category() Category { return l.category }

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }

func Engagement(format string, args ...interface{}) { Get(CategoryEngagement).Info(format, args...) }
func EngagementDebug(format string, args ...interface{}) { Get(CategoryEngagement).Debug(format, args...) }

func Gating(format string, args ...interface{}) { Get(CategoryGating).Info(format, args...) }
func GatingDebug(format string, args ...interface{}) { Get(CategoryGating).Debug(format, args...) }
func GatingWarn(format string, args ...interface{}) { Get(CategoryGating).Warn(format, args...) }

func Cycle(format string, args ...interface{}) { Get(CategoryCycle).Info(format, args...) }
func CycleDebug(format string, args ...interface{}) { Get(CategoryCycle).Debug(format, args...) }
func CycleWarn(format string, args ...interface{}) { Get(CategoryCycle).Warn(format, args...) }

func Observation(format string, args ...interface{}) { Get(CategoryObservation).Info(format, args...) }
func ObservationDebug(format string, args ...interface{}) { Get(CategoryObservation).Debug(format, args...) }
func ObservationWarn(format string, args ...interface{}) { Get(CategoryObservation).Warn(format, args...) }

func ComposerDebug(format string, args ...interface{}) { Get(CategoryComposer).Debug(format, args...) }

func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }
func SessionWarn(format string, args ...interface{}) { Get(CategorySession).Warn(format, args...) }
func SessionError(format string, args ...interface{}) { Get(CategorySession).Error(format, args...) }

func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{}) { Get(CategoryStore).Warn(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
