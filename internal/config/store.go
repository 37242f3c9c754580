package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"chatoutline/internal/logging"
	"chatoutline/internal/textnorm"

	"gopkg.in/yaml.v3"
)

// Patch is a partial settings update keyed by field name.
type Patch map[string]any

// Store reads and writes the settings file.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns $XDG_CONFIG_HOME/chatoutline/settings.yaml (or the
// platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "chatoutline", "settings.yaml"), nil
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// LoadRaw decodes the settings file without validation. A missing file is an
// empty map, not an error.
func (s *Store) LoadRaw() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// Load returns the stored settings. Read or parse failures yield defaults.
func (s *Store) Load() Settings {
	raw, err := s.LoadRaw()
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("using default settings: %v", err)
		return Defaults()
	}
	return FromRaw(raw)
}

// Set validates p, clamps width and prefixLength, merges it over the stored
// values and writes the file. Keys the file already holds are preserved.
func (s *Store) Set(p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.LoadRaw()
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("overwriting unreadable settings: %v", err)
		raw = map[string]any{}
	}

	for key, v := range p {
		var probe Settings
		if !probe.apply(key, v) {
			return Settings{}, fmt.Errorf("invalid value %v for setting %q", v, key)
		}
		switch key {
		case KeyWidth:
			raw[key] = textnorm.Clamp(probe.Width, MinWidth, MaxWidth)
		case KeyPrefixLength:
			raw[key] = textnorm.Clamp(probe.PrefixLength, textnorm.MinPrefixLength, textnorm.MaxPrefixLength)
		case KeyGranularity:
			raw[key] = string(probe.Granularity)
		case KeySearchScope:
			raw[key] = string(probe.SearchScope)
		default:
			raw[key] = v
		}
	}

	if err := s.write(raw); err != nil {
		return FromRaw(raw), err
	}
	return FromRaw(raw), nil
}

func (s *Store) write(raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// ParseAssignment turns "key=value" from the command line into a typed patch entry.
func ParseAssignment(kv string) (string, any, error) {
	key, val, ok := strings.Cut(kv, "=")
	if !ok {
		return "", nil, fmt.Errorf("expected key=value, got %q", kv)
	}
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	switch key {
	case KeyOpenByDefault:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return "", nil, fmt.Errorf("%s must be true or false", key)
		}
		return key, b, nil
	case KeyWidth, KeyPrefixLength:
		n, err := strconv.Atoi(val)
		if err != nil {
			return "", nil, fmt.Errorf("%s must be an integer", key)
		}
		return key, n, nil
	case KeyGranularity, KeySearchScope:
		return key, val, nil
	}
	known := append([]string(nil), Keys...)
	sort.Strings(known)
	return "", nil, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(known, ", "))
}
