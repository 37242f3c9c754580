package browser

import (
	"context"
	"encoding/json"
	"time"

	"chatoutline/internal/logging"
	"chatoutline/internal/monitor"
)

type pageEvent struct {
	Type    string `json:"type"`
	InPanel bool   `json:"inPanel"`
	Message string `json:"message"`
}

// toEvents converts drained page events. Bursts of mutations and scrolls
// collapse to one each since the engine only needs to know they happened.
func toEvents(raw []pageEvent) []monitor.Event {
	out := make([]monitor.Event, 0, len(raw))
	var mutation, scroll bool
	mutationInPanel := true
	for _, ev := range raw {
		switch ev.Type {
		case "mutation":
			mutation = true
			mutationInPanel = mutationInPanel && ev.InPanel
		case "scroll":
			scroll = true
		case "toggle":
			out = append(out, monitor.Event{Kind: monitor.EventToggle})
		case "message":
			out = append(out, monitor.Event{Kind: monitor.EventMessage, Message: ev.Message})
		}
	}
	if mutation {
		out = append(out, monitor.Event{Kind: monitor.EventMutation, InPanel: mutationInPanel})
	}
	if scroll {
		out = append(out, monitor.Event{Kind: monitor.EventScroll})
	}
	return out
}

// Poll drains the page event buffer every poll interval and hands the events
// to emit until ctx is done.
func (p *Page) Poll(ctx context.Context, emit func(monitor.Event)) error {
	log := logging.Get(logging.CategoryBrowser)
	ticker := time.NewTicker(p.cfg.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var raw json.RawMessage
			if err := p.eval(ctx, drainJS, &raw); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Debug("drain page events: %v", err)
				continue
			}
			if len(raw) == 0 || string(raw) == "null" {
				// Navigation dropped the hook. Keys from the old page never
				// resolve again, so a rebuild starts from scratch.
				if err := p.install(ctx); err != nil {
					log.Debug("reinstall page hook: %v", err)
					continue
				}
				emit(monitor.Event{Kind: monitor.EventMutation})
				continue
			}
			var events []pageEvent
			if err := json.Unmarshal(raw, &events); err != nil {
				log.Debug("decode page events: %v", err)
				continue
			}
			for _, ev := range toEvents(events) {
				emit(ev)
			}
		}
	}
}
