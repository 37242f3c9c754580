// Package logging provides categorized loggers on top of zap.
// The panel owns the terminal, so nothing is written unless Initialize was
// called with a log file; until then every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, CLI wiring
	CategoryExtract  Category = "extract"  // Site strategies, message discovery
	CategoryIndex    Category = "index"    // Turn/pair building, identity, rebuilds
	CategoryViewport Category = "viewport" // Active item, scrolling, history
	CategoryMonitor  Category = "monitor"  // Mutation/scroll events, scheduling
	CategoryBrowser  Category = "browser"  // DevTools session, page hooks
	CategoryConfig   Category = "config"   // Settings store and watcher
	CategoryPanel    Category = "panel"    // Terminal panel
)

// Options controls Initialize.
type Options struct {
	// Path is the log file. Empty keeps logging disabled.
	Path  string
	Debug bool
	JSON  bool
	// Categories disables a category when mapped to false. Missing means enabled.
	Categories map[Category]bool
}

// Logger is a named zap sugared logger for one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize opens the log file and replaces the no-op base logger.
func Initialize(o Options) error {
	if o.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{o.Path}
	cfg.ErrorOutputPaths = []string{o.Path}
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !o.JSON {
		cfg.Encoding = "console"
	}
	if o.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	Get(CategoryBoot).Info("logging initialized (debug=%v)", o.Debug)
	return nil
}

// Reset drops back to the no-op logger, flushing the previous one.
func Reset() {
	mu.Lock()
	old := base
	base = zap.NewNop()
	opts = Options{}
	loggers = make(map[Category]*Logger)
	mu.Unlock()
	_ = old.Sync()
}

// DefaultPath is the log file under the user state directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "chatoutline", "chatoutline.log")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "chatoutline", "chatoutline.log")
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	enabled, ok := opts.Categories[category]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	z := base
	if enabled, ok := opts.Categories[category]; ok && !enabled {
		z = zap.NewNop()
	}
	l := &Logger{category: category, sugar: z.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Zap returns the base zap logger for callers that want typed fields.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() error {
	return Zap().Sync()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}
