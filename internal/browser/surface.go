package browser

import (
	"math"

	"chatoutline/internal/dom"
	"chatoutline/internal/logging"
	"chatoutline/internal/viewport"

	"golang.org/x/net/html"
)

// surface measures and scrolls the live page. Measurement failures read as
// unmeasurable rather than as errors.
type surface struct {
	p *Page
}

func (s surface) Tops(els []*html.Node) []float64 {
	out := make([]float64, len(els))
	for i := range out {
		out[i] = math.NaN()
	}
	var tops []*float64
	if err := s.p.eval(s.p.ctx, topsJS, &tops, keysOf(els)); err != nil {
		logging.Get(logging.CategoryViewport).Debug("measure %d targets: %v", len(els), err)
		return out
	}
	for i, t := range tops {
		if i < len(out) && t != nil {
			out[i] = *t
		}
	}
	return out
}

func (s surface) Headers() []viewport.Box {
	var boxes []viewport.Box
	var raw []struct {
		Top      float64 `json:"top"`
		Height   float64 `json:"height"`
		Position string  `json:"position"`
	}
	if err := s.p.eval(s.p.ctx, headersJS, &raw, dom.PanelRootID); err != nil {
		logging.Get(logging.CategoryViewport).Debug("measure headers: %v", err)
		return nil
	}
	for _, r := range raw {
		boxes = append(boxes, viewport.Box{Top: r.Top, Height: r.Height, Position: r.Position})
	}
	return boxes
}

func (s surface) ScrollableAncestor(el *html.Node) *html.Node {
	if el == nil {
		return nil
	}
	var k string
	if err := s.p.eval(s.p.ctx, scrollableAncestorJS, &k, keyOf(el), dom.PanelRootID); err != nil {
		logging.Get(logging.CategoryViewport).Debug("resolve scroller: %v", err)
		return nil
	}
	return s.p.node(k)
}

type scrollMetrics struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

func (s surface) metrics(sc *html.Node) scrollMetrics {
	var m scrollMetrics
	if err := s.p.eval(s.p.ctx, scrollMetricsJS, &m, keyOf(sc)); err != nil {
		logging.Get(logging.CategoryViewport).Debug("read scroll position: %v", err)
	}
	return m
}

func (s surface) ScrollTop(sc *html.Node) float64 { return s.metrics(sc).Top }

func (s surface) ScrollHeight(sc *html.Node) float64 { return s.metrics(sc).Height }

func (s surface) ScrollTo(sc *html.Node, top float64, smooth bool) error {
	return s.p.eval(s.p.ctx, scrollJS, nil, keyOf(sc), "to", top, smooth)
}

func (s surface) ScrollBy(sc *html.Node, delta float64, smooth bool) error {
	return s.p.eval(s.p.ctx, scrollJS, nil, keyOf(sc), "by", delta, smooth)
}

func (s surface) ScrollIntoView(el *html.Node) error {
	return s.p.eval(s.p.ctx, scrollIntoViewJS, nil, keyOf(el))
}

func (s surface) Highlight(el *html.Node, on bool) error {
	return s.p.eval(s.p.ctx, highlightJS, nil, keyOf(el), dom.HighlightClass, on)
}
