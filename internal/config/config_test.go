package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatoutline/internal/textnorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return NewStore(path)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.False(t, d.OpenByDefault)
	assert.Equal(t, 340, d.Width)
	assert.Equal(t, GranularityPair, d.Granularity)
	assert.Equal(t, textnorm.ScopePreview, d.SearchScope)
	assert.Equal(t, 800, d.PrefixLength)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "settings.yaml"))
	assert.Equal(t, Defaults(), s.Load())
}

func TestLoad_CorruptFileUsesDefaults(t *testing.T) {
	s := writeSettings(t, "width: [unclosed\n")
	assert.Equal(t, Defaults(), s.Load())
}

func TestLoad_PerFieldTypeCheck(t *testing.T) {
	s := writeSettings(t, `
openByDefault: "yes"
width: 410.7
granularity: turn
searchScope: everything
prefixLength: 50
`)
	got := s.Load()

	assert.False(t, got.OpenByDefault, "string is not a bool")
	assert.Equal(t, 410, got.Width)
	assert.Equal(t, GranularityTurn, got.Granularity)
	assert.Equal(t, textnorm.ScopePreview, got.SearchScope, "unknown scope falls back")
	assert.Equal(t, 50, got.PrefixLength, "stored raw, clamped on use")
	assert.Equal(t, textnorm.MinPrefixLength, got.EffectivePrefixLength())
}

func TestSet_MergesClampsAndPreservesUnknownKeys(t *testing.T) {
	s := writeSettings(t, "granularity: turn\ntheme: dark\n")

	got, err := s.Set(Patch{KeyWidth: 9000, KeyPrefixLength: 5, KeyOpenByDefault: true})
	require.NoError(t, err)

	assert.Equal(t, MaxWidth, got.Width)
	assert.Equal(t, textnorm.MinPrefixLength, got.PrefixLength)
	assert.True(t, got.OpenByDefault)
	assert.Equal(t, GranularityTurn, got.Granularity)

	raw, err := s.LoadRaw()
	require.NoError(t, err)
	assert.Equal(t, "dark", raw["theme"])
	assert.Equal(t, MaxWidth, raw[KeyWidth])
	assert.Equal(t, got, s.Load())
}

func TestSet_RejectsInvalidValues(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))

	_, err := s.Set(Patch{KeyGranularity: "thread"})
	assert.Error(t, err)
	_, err = s.Set(Patch{"colour": "red"})
	assert.Error(t, err)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing is written on a rejected patch")
}

func TestSet_CreatesDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "a", "b", "settings.yaml"))
	_, err := s.Set(Patch{KeySearchScope: "full"})
	require.NoError(t, err)
	assert.Equal(t, textnorm.ScopeFull, s.Load().SearchScope)
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		val     any
		wantErr bool
	}{
		{in: "width=400", key: KeyWidth, val: 400},
		{in: "openByDefault=true", key: KeyOpenByDefault, val: true},
		{in: "granularity = turn", key: KeyGranularity, val: "turn"},
		{in: "prefixLength=abc", wantErr: true},
		{in: "width", wantErr: true},
		{in: "colour=red", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, val, err := ParseAssignment(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.val, val)
		})
	}
}

func TestDiff(t *testing.T) {
	old := map[string]any{"width": 340, "granularity": "pair", "gone": true}
	now := map[string]any{"width": 340, "granularity": "turn", "searchScope": "full"}

	got := Diff(old, now)

	assert.Equal(t, Changes{
		"granularity": {Old: "pair", New: "turn"},
		"searchScope": {Old: nil, New: "full"},
		"gone":        {Old: true, New: nil},
	}, got)
}

func TestWatcher_ReportsChangedFields(t *testing.T) {
	s := writeSettings(t, "width: 340\n")
	w, err := NewWatcher(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	_, err = s.Set(Patch{KeyWidth: 400})
	require.NoError(t, err)

	select {
	case ch := <-w.Changes():
		require.Contains(t, ch, KeyWidth)
		assert.Equal(t, 340, ch[KeyWidth].Old)
		assert.Equal(t, 400, ch[KeyWidth].New)
	case <-time.After(3 * time.Second):
		t.Fatal("no settings change delivered")
	}
}

func TestWatcher_StartsBeforeFirstSave(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "settings.yaml"))
	w, err := NewWatcher(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	_, err = s.Set(Patch{KeyGranularity: "turn"})
	require.NoError(t, err)

	select {
	case ch := <-w.Changes():
		assert.Equal(t, "turn", ch[KeyGranularity].New)
	case <-time.After(3 * time.Second):
		t.Fatal("no settings change delivered")
	}
}
