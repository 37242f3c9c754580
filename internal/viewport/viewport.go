// Package viewport measures where outline targets sit on screen and keeps
// the back/forward scroll history.
package viewport

import (
	"math"
	"time"

	"chatoutline/internal/textnorm"

	"golang.org/x/net/html"
)

const (
	// ActiveLineOffset places the active reference line below the header.
	ActiveLineOffset = 24
	// TargetOffset is where a navigation target should land below the header.
	TargetOffset = 12
	// MaxHeaderOffset bounds the header estimate.
	MaxHeaderOffset = 140
	// CorrectionTolerance is the largest miss left uncorrected, in pixels.
	CorrectionTolerance = 2

	SettleDelay       = 60 * time.Millisecond
	HighlightDuration = 1300 * time.Millisecond
)

// Box is the measured geometry of a header candidate.
type Box struct {
	Top      float64
	Height   float64
	Position string // computed CSS position
}

// Surface is the geometry and scrolling capability of a host page.
// A nil scroller means the whole-page scroller.
type Surface interface {
	// Tops returns the viewport-relative top of each element, NaN when the
	// element is detached or cannot be measured.
	Tops(els []*html.Node) []float64
	// Headers measures every header and banner-role element.
	Headers() []Box
	// ScrollableAncestor is the nearest scrolling container of el, or nil.
	ScrollableAncestor(el *html.Node) *html.Node
	ScrollTop(sc *html.Node) float64
	ScrollHeight(sc *html.Node) float64
	ScrollTo(sc *html.Node, top float64, smooth bool) error
	ScrollBy(sc *html.Node, delta float64, smooth bool) error
	ScrollIntoView(el *html.Node) error
	Highlight(el *html.Node, on bool) error
}

// IsPinnedHeader reports a fixed or sticky box at the very top that is tall
// enough to cover content.
func IsPinnedHeader(b Box) bool {
	if b.Position != "fixed" && b.Position != "sticky" {
		return false
	}
	return b.Top <= 1 && b.Height > 30
}

// HeaderOffset estimates the pinned header height: the tallest pinned
// header, rounded up and clamped to [0, MaxHeaderOffset].
func HeaderOffset(s Surface) int {
	best := 0
	for _, b := range s.Headers() {
		if !IsPinnedHeader(b) {
			continue
		}
		best = max(best, int(math.Ceil(b.Height)))
	}
	return textnorm.Clamp(best, 0, MaxHeaderOffset)
}

// ActiveIndex picks the target closest to line. Unmeasurable targets are
// skipped, the first of equally close targets wins, and an empty list is -1.
func ActiveIndex(tops []float64, line float64) int {
	if len(tops) == 0 {
		return -1
	}
	best := 0
	bestDist := math.Inf(1)
	for i, top := range tops {
		if math.IsNaN(top) {
			continue
		}
		if d := math.Abs(top - line); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Correction returns the scroll-by delta that moves a target at top to the
// desired line, and false when it is already within tolerance.
func Correction(top float64, headerOffset int) (float64, bool) {
	delta := top - float64(headerOffset+TargetOffset)
	if math.IsNaN(delta) || math.Abs(delta) < CorrectionTolerance {
		return 0, false
	}
	return delta, true
}
