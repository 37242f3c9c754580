// Package config persists the user settings that shape the outline and the
// panel. The store is a small YAML file; every field is type-checked on load
// and falls back to its default independently.
package config

import (
	"chatoutline/internal/textnorm"
)

// Granularity selects whether outline items are single turns or Q/A pairs.
type Granularity string

const (
	GranularityPair Granularity = "pair"
	GranularityTurn Granularity = "turn"
)

// Field keys as they appear in the settings file.
const (
	KeyOpenByDefault = "openByDefault"
	KeyWidth         = "width"
	KeyGranularity   = "granularity"
	KeySearchScope   = "searchScope"
	KeyPrefixLength  = "prefixLength"
)

// Keys lists every settings field in display order.
var Keys = []string{KeyOpenByDefault, KeyWidth, KeyGranularity, KeySearchScope, KeyPrefixLength}

const (
	MinWidth = 260
	MaxWidth = 520
)

// Settings is the process-wide configuration.
type Settings struct {
	OpenByDefault bool           `yaml:"openByDefault" json:"openByDefault"`
	Width         int            `yaml:"width" json:"width"`
	Granularity   Granularity    `yaml:"granularity" json:"granularity"`
	SearchScope   textnorm.Scope `yaml:"searchScope" json:"searchScope"`
	PrefixLength  int            `yaml:"prefixLength" json:"prefixLength"`
}

// Defaults returns the settings used when nothing valid is stored.
func Defaults() Settings {
	return Settings{
		OpenByDefault: false,
		Width:         340,
		Granularity:   GranularityPair,
		SearchScope:   textnorm.ScopePreview,
		PrefixLength:  800,
	}
}

// PanelWidth is the width clamped to the supported range.
func (s Settings) PanelWidth() int {
	return textnorm.Clamp(s.Width, MinWidth, MaxWidth)
}

// EffectivePrefixLength is the prefix length clamped to the supported range.
func (s Settings) EffectivePrefixLength() int {
	return textnorm.Clamp(s.PrefixLength, textnorm.MinPrefixLength, textnorm.MaxPrefixLength)
}

// FromRaw builds Settings from decoded YAML, keeping the default for any
// field that is missing or has the wrong type.
func FromRaw(raw map[string]any) Settings {
	s := Defaults()
	for key, v := range raw {
		s.apply(key, v)
	}
	return s
}

// apply sets one field when v has an acceptable type and reports whether it did.
func (s *Settings) apply(key string, v any) bool {
	switch key {
	case KeyOpenByDefault:
		if b, ok := v.(bool); ok {
			s.OpenByDefault = b
			return true
		}
	case KeyWidth:
		if n, ok := AsNumber(v); ok {
			s.Width = n
			return true
		}
	case KeyGranularity:
		if g, ok := ParseGranularity(v); ok {
			s.Granularity = g
			return true
		}
	case KeySearchScope:
		if sc, ok := ParseScope(v); ok {
			s.SearchScope = sc
			return true
		}
	case KeyPrefixLength:
		if n, ok := AsNumber(v); ok {
			s.PrefixLength = n
			return true
		}
	}
	return false
}

// ParseGranularity accepts only the two known values.
func ParseGranularity(v any) (Granularity, bool) {
	str, _ := v.(string)
	switch g := Granularity(str); g {
	case GranularityPair, GranularityTurn:
		return g, true
	}
	return "", false
}

// ParseScope accepts only the three known search scopes.
func ParseScope(v any) (textnorm.Scope, bool) {
	str, _ := v.(string)
	switch sc := textnorm.Scope(str); sc {
	case textnorm.ScopePreview, textnorm.ScopePrefix, textnorm.ScopeFull:
		return sc, true
	}
	return "", false
}

// AsNumber accepts YAML integers and floats; floats are truncated.
func AsNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
