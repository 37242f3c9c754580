package main

import (
	"fmt"
	"os"
	"strings"

	"chatoutline/internal/config"
	"chatoutline/internal/logging"
	"chatoutline/internal/site"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	settingsPath string
	logFile      string
	strategyID   string

	// Logger for commands that print to the terminal
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chatoutline",
	Short: "Navigable outline for long AI chat conversations",
	Long: `chatoutline indexes the messages of a chat page (ChatGPT, DeepSeek,
Tongyi, Doubao or any page with a recognizable message list) into an outline
of turns or question/answer pairs, and scrolls the page to any of them.

Attach to a page in a running Chrome with "attach", or work on a saved page
with "outline" and "watch".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := logFile
		if path == "" && verbose {
			path = logging.DefaultPath()
		}
		if err := logging.Initialize(logging.Options{Path: path, Debug: verbose}); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write categorized logs to this file")
	rootCmd.PersistentFlags().StringVar(&strategyID, "strategy", "",
		"Site strategy to use instead of picking one by host ("+strings.Join(strategyIDs(), ", ")+")")

	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingsStore opens the settings file named by --settings or the default one.
func settingsStore() (*config.Store, error) {
	path := settingsPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, fmt.Errorf("failed to locate settings: %w", err)
		}
	}
	return config.NewStore(path), nil
}

func strategyIDs() []string {
	all := site.All()
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID()
	}
	return ids
}

// pickStrategy returns the strategy named by --strategy, or the one for host.
func pickStrategy(host string) (site.Strategy, error) {
	if strategyID == "" {
		return site.ForHost(host), nil
	}
	if s, ok := site.ByID(strategyID); ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (known: %s)", strategyID, strings.Join(strategyIDs(), ", "))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
