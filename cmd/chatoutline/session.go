package main

import (
	"context"
	"errors"
	"fmt"

	"chatoutline/internal/config"
	"chatoutline/internal/engine"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/monitor"
	"chatoutline/internal/panel"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// eventSource pumps host events into emit until ctx is done.
type eventSource func(ctx context.Context, emit func(monitor.Event)) error

// runPanel wires a host to the engine and the terminal panel and runs until
// the panel quits or ctx is cancelled. The panel goroutine owns the event
// loop; the event source and the settings watcher only post to it.
func runPanel(ctx context.Context, host engine.Host, store *config.Store, events eventSource) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	strategy, err := pickStrategy(host.Name())
	if err != nil {
		return err
	}
	loop := eventloop.New(256)
	defer loop.Close()

	m := panel.New(panel.Options{
		Loop:         loop,
		SettingsPath: store.Path(),
		Title:        "Outline · " + strategy.Name(),
	})
	e := engine.New(engine.Config{
		Host:        host,
		Strategy:    strategy,
		Settings:    store.Load(),
		Store:       store,
		Clock:       eventloop.RealClock{},
		Post:        loop.Poster(),
		OpenOptions: m.RequestOptions,
		OnChange:    m.Changed,
	})
	m.Bind(e)

	// Nothing else runs yet, so Start may touch the engine from here.
	if err := e.Start(ctx); err != nil {
		return err
	}
	logger.Debug("outline started", zap.String("host", host.Name()), zap.String("strategy", strategy.ID()))

	watcher, err := config.NewWatcher(store)
	if err != nil {
		return fmt.Errorf("failed to watch settings: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return fmt.Errorf("failed to watch settings: %w", err)
	}
	defer watcher.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return events(gctx, func(ev monitor.Event) {
			loop.Post(func() { e.HandleEvent(ev) })
		})
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case changes := <-watcher.Changes():
				loop.Post(func() { e.ApplySettingsChanges(changes) })
			}
		}
	})

	g.Go(func() error {
		defer stop()
		defer loop.Close()
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("panel: %w", err)
		}
		return nil
	})

	return g.Wait()
}
