// Package manifest handles numium.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "numium.toml"

// Metadata modes for the loader section.
const (
	MetadataScan = "scan"
	MetadataJSON = "json"
)

// Manifest represents a numium.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	VM      VMConfig      `toml:"vm"`
	Loader  LoaderConfig  `toml:"loader"`
	Log     LogConfig     `toml:"log"`
	History HistoryConfig `toml:"history"`

	// Dir is the directory containing the numium.toml file (set at load time).
	// Empty for a default manifest.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// VMConfig sets the machine limits and behaviour switches.
type VMConfig struct {
	StackSize         int  `toml:"stack_size"`
	MaxVariables      int  `toml:"max_variables"`
	MaxFunctions      int  `toml:"max_functions"`
	MaxCallDepth      int  `toml:"max_call_depth"`
	StrictOperands    bool `toml:"strict_operands"`
	StripInputNewline bool `toml:"strip_input_newline"`
}

// LoaderConfig selects how .meta.json side files are read.
type LoaderConfig struct {
	Metadata string `toml:"metadata"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// HistoryConfig locates the run history database. An empty path disables
// recording.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// Default returns a manifest with every default applied.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a numium.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if m.Loader.Metadata != MetadataScan && m.Loader.Metadata != MetadataJSON {
		return nil, fmt.Errorf("%s: loader.metadata must be %q or %q, got %q",
			path, MetadataScan, MetadataJSON, m.Loader.Metadata)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a numium.toml file,
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

// FindOrDefault is FindAndLoad, falling back to Default when no file exists.
func FindOrDefault(startDir string) (*Manifest, error) {
	m, err := FindAndLoad(startDir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return Default(), nil
	}
	return m, nil
}

// applyDefaults replaces zero or negative limits and an empty metadata mode.
func (m *Manifest) applyDefaults() {
	if m.VM.StackSize <= 0 {
		m.VM.StackSize = 1024
	}
	if m.VM.MaxVariables <= 0 {
		m.VM.MaxVariables = 256
	}
	if m.VM.MaxFunctions <= 0 {
		m.VM.MaxFunctions = 64
	}
	if m.VM.MaxCallDepth <= 0 {
		m.VM.MaxCallDepth = 256
	}
	if m.Loader.Metadata == "" {
		m.Loader.Metadata = MetadataScan
	}
}

// resolve makes a configured path absolute relative to the manifest
// directory. Empty stays empty.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// HistoryPath returns the history database path, or "" when disabled.
func (m *Manifest) HistoryPath() string {
	return m.resolve(m.History.Path)
}

// LogPath returns the log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.Path)
}
