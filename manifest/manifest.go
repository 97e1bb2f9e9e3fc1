// Package manifest handles kutes.toml configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for by FindAndLoad.
const FileName = "kutes.toml"

// Manifest represents a kutes.toml configuration.
type Manifest struct {
	Evaluator Evaluator `toml:"evaluator"`
	History   History   `toml:"history"`
	Server    Server    `toml:"server"`
	Views     []View    `toml:"views"`

	// Dir is the directory containing the kutes.toml file (set at load time).
	Dir string `toml:"-"`
}

// MinHandleTTL is the shortest handle lifetime the server accepts.
const MinHandleTTL = time.Second

// Evaluator bounds each interpreter.
type Evaluator struct {
	MaxFrames  int `toml:"max-frames"`
	MaxStack   int `toml:"max-stack"`
	MaxScripts int `toml:"max-scripts"`
}

// History configures the command history store.
type History struct {
	Path string `toml:"path"`
}

// Server configures the HTTP evaluation service.
type Server struct {
	Addr      string   `toml:"addr"`
	HandleTTL Duration `toml:"handle-ttl"`
}

// Duration is a time.Duration read from a string such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no kutes.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses kutes.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	m, err := LoadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a kutes.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Evaluator.MaxFrames <= 0 {
		m.Evaluator.MaxFrames = 512
	}
	if m.Evaluator.MaxStack <= 0 {
		m.Evaluator.MaxStack = 4096
	}
	if m.Evaluator.MaxScripts <= 0 {
		m.Evaluator.MaxScripts = 256
	}
	if m.History.Path == "" {
		m.History.Path = defaultHistoryPath()
	}
	if m.Server.Addr == "" {
		m.Server.Addr = "localhost:8417"
	}
	if m.Server.HandleTTL.Duration <= 0 {
		m.Server.HandleTTL.Duration = 30 * time.Minute
	}
}

func defaultHistoryPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kutes", "history.db")
	}
	return ".kutes-history.db"
}

// HistoryPath returns the history database path, resolved against the
// manifest directory when relative.
func (m *Manifest) HistoryPath() string {
	if filepath.IsAbs(m.History.Path) || m.Dir == "" {
		return m.History.Path
	}
	return filepath.Join(m.Dir, m.History.Path)
}

// Validate checks the views for consistency.
func (m *Manifest) Validate() error {
	var errs []error
	if ttl := m.Server.HandleTTL.Duration; ttl != 0 && ttl < MinHandleTTL {
		errs = append(errs, fmt.Errorf("server: handle-ttl %s is below %s", ttl, MinHandleTTL))
	}
	seen := make(map[string]bool)
	for n := range m.Views {
		v := &m.Views[n]
		if v.Kind == "" {
			errs = append(errs, fmt.Errorf("views[%d]: missing kind", n))
			continue
		}
		if seen[v.Kind] {
			errs = append(errs, fmt.Errorf("views[%d]: duplicate view for kind %s", n, v.Kind))
		}
		seen[v.Kind] = true
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("views[%d]: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
