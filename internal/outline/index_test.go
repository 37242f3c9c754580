package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleItems() []Item {
	return []Item{
		{ID: "a", Index: 0, Preview: "Deploying Go services", SearchText: "Deploying Go services with systemd"},
		{ID: "b", Index: 1, Preview: "Python packaging"},
		{ID: "c", Index: 2, Preview: "Kubernetes", SearchText: "kubernetes and GO modules"},
	}
}

func TestIndex_ReplaceAndFind(t *testing.T) {
	x := NewIndex()
	_, ok := x.Find("a")
	assert.False(t, ok)

	x.Replace(sampleItems())
	i, ok := x.Find("c")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, 3, x.Len())

	x.Replace(sampleItems()[:1])
	_, ok = x.Find("c")
	assert.False(t, ok, "lookup is replaced with the items")

	it, ok := x.At(0)
	assert.True(t, ok)
	assert.Equal(t, "a", it.ID)
	_, ok = x.At(1)
	assert.False(t, ok)
}

func TestIndex_Filter(t *testing.T) {
	x := NewIndex()
	x.Replace(sampleItems())

	assert.Equal(t, []string{"a", "c"}, ids(x.Filter("  go  "), func(it Item) string { return it.ID }))
	assert.Equal(t, []string{"b"}, ids(x.Filter("PYTHON"), func(it Item) string { return it.ID }))
	assert.Empty(t, x.Filter("rust"))
	assert.Len(t, x.Filter(""), 3)
	assert.Equal(t, 3, x.Len(), "filtering never mutates the index")
}
