package outline

import (
	"strings"

	"chatoutline/internal/textnorm"
)

// Index is the current outline. Replace swaps the item list and the id
// lookup together, so readers never see one without the other.
type Index struct {
	items []Item
	byID  map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byID: map[string]int{}}
}

// Replace installs a freshly built item list.
func (x *Index) Replace(items []Item) {
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[it.ID] = i
	}
	x.items, x.byID = items, byID
}

// Find returns the position of id.
func (x *Index) Find(id string) (int, bool) {
	i, ok := x.byID[id]
	return i, ok
}

// Items returns the current list. Callers must not modify it.
func (x *Index) Items() []Item { return x.items }

func (x *Index) Len() int { return len(x.items) }

// At returns the item at position i.
func (x *Index) At(i int) (Item, bool) {
	if i < 0 || i >= len(x.items) {
		return Item{}, false
	}
	return x.items[i], true
}

// Filter returns the items whose search text (or preview when empty)
// contains query, case-insensitively. The index itself is untouched.
func (x *Index) Filter(query string) []Item {
	return Filter(x.items, query)
}

// Filter is the package-level form of Index.Filter.
func Filter(items []Item, query string) []Item {
	q := strings.ToLower(textnorm.Normalize(query))
	if q == "" {
		return append([]Item(nil), items...)
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(firstNonEmpty(it.SearchText, it.Preview)), q) {
			out = append(out, it)
		}
	}
	return out
}
