package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatoutline/internal/config"
	"chatoutline/internal/htmlfile"
	"chatoutline/internal/identity"
	"chatoutline/internal/outline"
	"chatoutline/internal/panel"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var outlineFlags struct {
	host         string
	granularity  string
	searchScope  string
	prefixLength int
	format       string
	query        string
}

// outlineCmd prints the outline of a saved chat page
var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Print the outline of a saved chat page",
	Long: `Reads a saved chat page and prints its outline. Stored settings apply
unless overridden by flags.

Examples:
  chatoutline outline chat.html --host chatgpt.com
  chatoutline outline chat.html --granularity turn --format json
  chatoutline outline chat.html --query goroutine --search-scope full`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

// watchCmd shows the panel for a saved chat page and follows file changes
var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Show the outline panel for a saved chat page, rebuilding on change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	f := outlineCmd.Flags()
	f.StringVar(&outlineFlags.host, "host", "", "Host the page was saved from (picks the site strategy)")
	f.StringVar(&outlineFlags.granularity, "granularity", "", "turn or pair")
	f.StringVar(&outlineFlags.searchScope, "search-scope", "", "preview, prefix or full")
	f.IntVar(&outlineFlags.prefixLength, "prefix-length", 0, "Characters searched in prefix scope")
	f.StringVar(&outlineFlags.format, "format", "text", "text or json")
	f.StringVar(&outlineFlags.query, "query", "", "Only print items matching this search")

	watchCmd.Flags().StringVar(&outlineFlags.host, "host", "", "Host the page was saved from (picks the site strategy)")
}

// outlineSettings applies the command-line overrides to the stored settings.
func outlineSettings(store *config.Store) (config.Settings, error) {
	s := store.Load()
	if outlineFlags.granularity != "" {
		g, ok := config.ParseGranularity(outlineFlags.granularity)
		if !ok {
			return s, fmt.Errorf("invalid granularity %q", outlineFlags.granularity)
		}
		s.Granularity = g
	}
	if outlineFlags.searchScope != "" {
		sc, ok := config.ParseScope(outlineFlags.searchScope)
		if !ok {
			return s, fmt.Errorf("invalid search scope %q", outlineFlags.searchScope)
		}
		s.SearchScope = sc
	}
	if outlineFlags.prefixLength > 0 {
		s.PrefixLength = outlineFlags.prefixLength
	}
	return s, nil
}

func runOutline(cmd *cobra.Command, args []string) error {
	store, err := settingsStore()
	if err != nil {
		return err
	}
	settings, err := outlineSettings(store)
	if err != nil {
		return err
	}

	f, err := htmlfile.Open(args[0], outlineFlags.host)
	if err != nil {
		return err
	}
	strategy, err := pickStrategy(f.Name())
	if err != nil {
		return err
	}
	doc, err := f.Document(cmd.Context())
	if err != nil {
		return err
	}

	logger.Debug("building outline", zap.String("file", args[0]), zap.String("strategy", strategy.ID()))
	items := outline.NewBuilder(strategy, identity.New(f)).Build(doc, settings)
	if outlineFlags.query != "" {
		items = outline.Filter(items, outlineFlags.query)
	}

	switch outlineFlags.format {
	case "json":
		return writeJSON(cmd.OutOrStdout(), items)
	case "text":
		return writeText(cmd.OutOrStdout(), items)
	}
	return fmt.Errorf("unknown format %q", outlineFlags.format)
}

type itemJSON struct {
	Kind    string   `json:"kind"`
	ID      string   `json:"id"`
	Index   int      `json:"index"`
	Role    string   `json:"role"`
	Preview string   `json:"preview"`
	HasCode bool     `json:"hasCode"`
	Badges  []string `json:"badges"`
}

func writeJSON(w io.Writer, items []outline.Item) error {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON{
			Kind:    string(it.Kind),
			ID:      it.ID,
			Index:   it.Index,
			Role:    it.Role,
			Preview: it.Preview,
			HasCode: it.HasCode,
			Badges:  panel.Badges(it),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeText(w io.Writer, items []outline.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No messages found")
		return err
	}
	for _, it := range items {
		preview := it.Preview
		if preview == "" {
			preview = "(empty)"
		}
		if _, err := fmt.Fprintf(w, "#%d [%s] %s\n", it.Index+1, strings.Join(panel.Badges(it), "]["), preview); err != nil {
			return err
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := settingsStore()
	if err != nil {
		return err
	}
	f, err := htmlfile.Open(args[0], outlineFlags.host)
	if err != nil {
		return err
	}
	return runPanel(ctx, f, store, f.Watch)
}
