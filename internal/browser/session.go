// Package browser attaches the outline to a chat page in a running Chrome
// through the DevTools protocol.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatoutline/internal/dom"
	"chatoutline/internal/logging"
	"chatoutline/internal/viewport"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Config holds browser connection settings.
type Config struct {
	DebuggerURL string   `json:"debugger_url"`
	Launch      []string `json:"launch"`
	Headless    bool     `json:"headless"`
	// Match selects the first page whose URL contains it. Empty takes the
	// first ordinary page.
	Match string `json:"match"`
	// URL is opened in a new page when no existing page matches.
	URL          string `json:"url"`
	PollInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 150 * time.Millisecond,
	}
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return 150 * time.Millisecond
	}
	return c.PollInterval
}

type attrWrite [3]string

// Page is an attached chat page. It implements the engine host, its viewport
// surface and the open indicator.
type Page struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	token   string
	ctx     context.Context
	// launched is set when chatoutline started the browser itself. Only then
	// does Close shut it down.
	launched bool
	cancel   context.CancelFunc

	mu      sync.Mutex
	host    string
	url     string
	keys    map[string]*html.Node
	pending []attrWrite
}

// Attach connects to Chrome (or launches it), selects the chat page and
// installs the page hook.
func Attach(ctx context.Context, cfg Config) (*Page, error) {
	controlURL, launched, err := resolveControlURL(cfg)
	if err != nil {
		return nil, err
	}

	bctx, cancel := context.WithCancel(ctx)
	b := rod.New().ControlURL(controlURL).Context(bctx)
	p := &Page{
		cfg:      cfg,
		browser:  b,
		token:    uuid.NewString(),
		ctx:      bctx,
		launched: launched,
		cancel:   cancel,
		keys:     make(map[string]*html.Node),
	}
	if err := b.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := selectPage(b, cfg)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.page = page
	if err := p.install(bctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	logging.Get(logging.CategoryBrowser).Info("attached to %s (hook %s)", p.url, p.token)
	return p, nil
}

// resolveControlURL returns the DevTools URL to connect to and whether a
// browser had to be launched for it.
func resolveControlURL(cfg Config) (string, bool, error) {
	if cfg.DebuggerURL != "" {
		return cfg.DebuggerURL, false, nil
	}
	if len(cfg.Launch) > 0 {
		bin := cfg.Launch[0]
		l := launcher.New().Bin(bin).Headless(cfg.Headless)
		for _, rawFlag := range cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		url, err := l.Launch()
		if err != nil {
			return "", false, fmt.Errorf("launch chrome: %w", err)
		}
		return url, true, nil
	}
	url, err := launcher.New().Headless(cfg.Headless).Launch()
	if err != nil {
		return "", false, fmt.Errorf("no debugger url and failed to launch: %w", err)
	}
	return url, true, nil
}

func selectPage(b *rod.Browser, cfg Config) (*rod.Page, error) {
	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, pg := range pages {
		info, err := pg.Info()
		if err != nil || info == nil {
			continue
		}
		if info.Type != "page" {
			continue
		}
		if cfg.Match == "" && strings.HasPrefix(info.URL, "chrome") {
			continue
		}
		if cfg.Match == "" || strings.Contains(info.URL, cfg.Match) {
			return pg, nil
		}
	}
	if cfg.URL == "" {
		if cfg.Match != "" {
			return nil, fmt.Errorf("no page matching %q", cfg.Match)
		}
		return nil, errors.New("no page to attach to")
	}
	pg, err := b.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", cfg.URL, err)
	}
	return pg, nil
}

// install puts the registry, toggle button and message listener into the page.
func (p *Page) install(ctx context.Context) error {
	if err := p.eval(ctx, hookJS, nil, p.token, dom.PanelRootID, dom.HighlightClass); err != nil {
		return fmt.Errorf("install page hook: %w", err)
	}
	var loc struct {
		Host string `json:"host"`
		URL  string `json:"url"`
	}
	if err := p.eval(ctx, `() => ({ host: location.host, url: location.href })`, &loc); err != nil {
		return fmt.Errorf("read page location: %w", err)
	}
	p.mu.Lock()
	p.host, p.url = loc.Host, loc.URL
	p.mu.Unlock()
	return nil
}

// Close removes the page hook and disconnects. A browser chatoutline launched
// is shut down; a browser it connected to keeps running with all its pages.
func (p *Page) Close() error {
	if p.cancel != nil {
		defer p.cancel()
	}
	if p.page != nil {
		_ = p.eval(context.Background(), teardownJS, nil, dom.PanelRootID)
	}
	if p.launched && p.browser != nil {
		return p.browser.Close()
	}
	return nil
}

// URL is the page address at attach time or the last snapshot.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// eval runs js in the page and decodes its JSON result into out when given.
func (p *Page) eval(ctx context.Context, js string, out any, args ...any) error {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return err
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Name is the page host, as in location.host.
func (p *Page) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host
}

// Document snapshots the live page. A page that lost its hook is re-hooked
// once and read again.
func (p *Page) Document(ctx context.Context) (*html.Node, error) {
	doc, err := p.snapshot(ctx)
	if errors.Is(err, ErrNotInstalled) {
		logging.Get(logging.CategoryBrowser).Debug("page hook missing, reinstalling")
		if err := p.install(ctx); err != nil {
			return nil, err
		}
		doc, err = p.snapshot(ctx)
	}
	return doc, err
}

func (p *Page) snapshot(ctx context.Context) (*html.Node, error) {
	var raw json.RawMessage
	if err := p.eval(ctx, snapshotJS, &raw); err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	s, doc, keys, err := decodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.host, p.url, p.keys = s.Host, s.URL, keys
	p.mu.Unlock()
	return doc, nil
}

// SetAttr writes into the snapshot at once and queues the page write for Flush.
func (p *Page) SetAttr(el *html.Node, name, value string) error {
	k := keyOf(el)
	if k == "" {
		return errors.New("element has no page key")
	}
	dom.SetAttr(el, name, value)
	p.mu.Lock()
	p.pending = append(p.pending, attrWrite{k, name, value})
	p.mu.Unlock()
	return nil
}

// Flush sends the queued attribute writes in one round trip.
func (p *Page) Flush(ctx context.Context) error {
	p.mu.Lock()
	writes := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(writes) == 0 {
		return nil
	}
	var applied int
	if err := p.eval(ctx, applyAttrsJS, &applied, writes); err != nil {
		return fmt.Errorf("write %d attributes: %w", len(writes), err)
	}
	if applied < len(writes) {
		logging.Get(logging.CategoryBrowser).Debug("%d of %d attribute writes hit detached elements", len(writes)-applied, len(writes))
	}
	return nil
}

// Observe reports mutations under root. A nil root observes the body.
func (p *Page) Observe(ctx context.Context, root *html.Node) error {
	var ok bool
	if err := p.eval(ctx, observeJS, &ok, keyOf(root)); err != nil {
		return err
	}
	if !ok {
		return ErrNotInstalled
	}
	return nil
}

// BindScroll moves the page scroll listener to sc.
func (p *Page) BindScroll(sc *html.Node) error {
	var ok bool
	if err := p.eval(p.ctx, bindScrollJS, &ok, keyOf(sc)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("scroll container %q is gone", keyOf(sc))
	}
	return nil
}

// ElementKey identifies the live element behind a snapshot node.
func (p *Page) ElementKey(el *html.Node) string {
	return keyOf(el)
}

// SetOpen reflects the panel state on the page toggle button.
func (p *Page) SetOpen(open bool) error {
	return p.eval(p.ctx, setOpenJS, nil, dom.PanelRootID, open)
}

// Surface is the live geometry of the page.
func (p *Page) Surface() viewport.Surface {
	return surface{p}
}

// node resolves a key against the latest snapshot.
func (p *Page) node(k string) *html.Node {
	if k == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[k]
}
