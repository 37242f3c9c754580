package viewport

// HistoryCapacity bounds the back stack.
const HistoryCapacity = 50

// History is browser-style back/forward navigation over scroll offsets.
type History struct {
	back    []float64
	forward []float64
}

// Push records the offset left behind by a new navigation and clears the
// forward stack. The oldest entry is dropped past capacity.
func (h *History) Push(offset float64) {
	h.back = appendBounded(h.back, offset)
	h.forward = h.forward[:0]
}

// Back pops the previous offset, moving current onto the forward stack.
func (h *History) Back(current float64) (float64, bool) {
	if len(h.back) == 0 {
		return 0, false
	}
	prev := h.back[len(h.back)-1]
	h.back = h.back[:len(h.back)-1]
	h.forward = append(h.forward, current)
	return prev, true
}

// Forward pops the next offset, moving current onto the back stack.
func (h *History) Forward(current float64) (float64, bool) {
	if len(h.forward) == 0 {
		return 0, false
	}
	next := h.forward[len(h.forward)-1]
	h.forward = h.forward[:len(h.forward)-1]
	h.back = appendBounded(h.back, current)
	return next, true
}

// Len returns the sizes of the back and forward stacks.
func (h *History) Len() (back, forward int) {
	return len(h.back), len(h.forward)
}

// Entries returns a copy of the back stack, oldest first.
func (h *History) Entries() []float64 {
	return append([]float64(nil), h.back...)
}

func appendBounded(s []float64, v float64) []float64 {
	s = append(s, v)
	if over := len(s) - HistoryCapacity; over > 0 {
		s = append(s[:0], s[over:]...)
	}
	return s
}
