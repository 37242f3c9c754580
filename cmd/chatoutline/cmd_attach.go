package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatoutline/internal/browser"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var attachFlags struct {
	debuggerURL string
	launch      []string
	headless    bool
	match       string
	url         string
	poll        time.Duration
}

// attachCmd attaches the outline to a chat page in Chrome
var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach the outline panel to a chat page in Chrome",
	Long: `Connects to Chrome over the DevTools protocol, picks the chat page and
shows its outline in the terminal. Selecting an item scrolls the page.

Start Chrome with --remote-debugging-port=9222 and pass the browser websocket
URL with --debugger-url, or let chatoutline launch one.

Examples:
  chatoutline attach --debugger-url ws://127.0.0.1:9222/devtools/browser/<id> --match chatgpt.com
  chatoutline attach --url https://chat.deepseek.com/`,
	RunE: runAttach,
}

func init() {
	f := attachCmd.Flags()
	f.StringVar(&attachFlags.debuggerURL, "debugger-url", "", "DevTools websocket URL of a running Chrome")
	f.StringSliceVar(&attachFlags.launch, "launch", nil, "Chrome binary followed by launch flags")
	f.BoolVar(&attachFlags.headless, "headless", false, "Launch Chrome headless")
	f.StringVar(&attachFlags.match, "match", "", "Attach to the first page whose URL contains this")
	f.StringVar(&attachFlags.url, "url", "", "Open this URL when no page matches")
	f.DurationVar(&attachFlags.poll, "poll", 150*time.Millisecond, "Page event poll interval")
}

func browserConfig() browser.Config {
	cfg := browser.DefaultConfig()
	cfg.DebuggerURL = attachFlags.debuggerURL
	cfg.Launch = attachFlags.launch
	cfg.Headless = attachFlags.headless
	cfg.Match = attachFlags.match
	cfg.URL = attachFlags.url
	cfg.PollInterval = attachFlags.poll
	return cfg
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := settingsStore()
	if err != nil {
		return err
	}

	cfg := browserConfig()
	logger.Info("Attaching to browser", zap.String("debugger", cfg.DebuggerURL), zap.String("match", cfg.Match))

	page, err := browser.Attach(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to attach: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("browser disconnect", zap.Error(err))
		}
	}()
	logger.Info("Attached", zap.String("url", page.URL()), zap.String("host", page.Name()))

	return runPanel(ctx, page, store, page.Poll)
}
