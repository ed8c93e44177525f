// internal/config/config.go
//
// This package handles the global bpixm.yaml that lives next to the data
// directory. It records who is operating, which revision is active and the
// operator's display preferences. Environment variables can override a few
// of these values for one run without touching the file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/bpixm/internal/topology"
)

const (
	// FileName is the global configuration file inside the working directory.
	FileName = "bpixm.yaml"

	defaultDataDir      = "data"
	defaultDisplayWidth = 80
)

const defaultConfigYAML = `# bpixm global configuration
version: 1

# Name written into every mount log line.
operator: ""

# Root of the numbered revision directories and the active revision.
data_dir: data
data_revision: 1

# Half-ladder scan order: inwards, outwards, lefttoright, righttoleft.
fill: inwards

# Save after every mount or clear.
autosave: false

colors: true
display_width: 80

# Z label convention: one-based (Z4- .. Z1-, Z1+ .. Z4+) or zero-based.
z_numbering: one-based
`

// Settings models bpixm.yaml.
type Settings struct {
	Version      int    `yaml:"version"`
	Operator     string `yaml:"operator"`
	DataDir      string `yaml:"data_dir"`
	DataRevision int    `yaml:"data_revision"`
	Fill         string `yaml:"fill"`
	Autosave     bool   `yaml:"autosave"`
	Colors       bool   `yaml:"colors"`
	DisplayWidth int    `yaml:"display_width"`
	ZNumbering   string `yaml:"z_numbering"`
}

// envOverrides are read once at load time. Pointer fields stay nil when
// the variable is unset.
type envOverrides struct {
	Operator *string `env:"BPIXM_OPERATOR"`
	DataDir  *string `env:"BPIXM_DATA_DIR"`
	Revision *int    `env:"BPIXM_REVISION"`
	NoColor  string  `env:"NO_COLOR"`
}

// Config holds the runtime configuration for one bpixm process.
type Config struct {
	// WorkDir is the directory bpixm was started from; data_dir is relative to it.
	WorkDir string

	Settings Settings

	overrides envOverrides
}

// Load reads WorkDir/bpixm.yaml, creating it with defaults when missing,
// and applies environment overrides. A file that exists but cannot be read
// or parsed is an error.
func Load(workDir string) (*Config, error) {
	cfg := &Config{WorkDir: workDir, Settings: defaultSettings()}
	if err := ensureConfigFile(cfg.Path()); err != nil {
		return nil, fmt.Errorf("config: ensure %s: %w", cfg.Path(), err)
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg.overrides); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

// Path returns the on-disk location of the global config.
func (c *Config) Path() string {
	return filepath.Join(c.WorkDir, FileName)
}

// DataDir is the revisions root, relative to WorkDir.
func (c *Config) DataDir() string {
	if c.overrides.DataDir != nil && strings.TrimSpace(*c.overrides.DataDir) != "" {
		return filepath.Clean(strings.TrimSpace(*c.overrides.DataDir))
	}
	return c.Settings.DataDir
}

// Operator returns the name recorded in the logs.
func (c *Config) Operator() string {
	if c.overrides.Operator != nil {
		return strings.TrimSpace(*c.overrides.Operator)
	}
	return c.Settings.Operator
}

// ActiveRevision is the revision the tool opens.
func (c *Config) ActiveRevision() int {
	if c.overrides.Revision != nil {
		return *c.overrides.Revision
	}
	return c.Settings.DataRevision
}

// SetActiveRevision persists a new active revision. A BPIXM_REVISION
// override stops applying once the operator switches explicitly.
func (c *Config) SetActiveRevision(n int) error {
	if n < 1 {
		return fmt.Errorf("config: revision must be >= 1, got %d", n)
	}
	c.overrides.Revision = nil
	c.Settings.DataRevision = n
	return c.Save()
}

// SetOperator persists the operator name.
func (c *Config) SetOperator(name string) error {
	c.overrides.Operator = nil
	c.Settings.Operator = strings.TrimSpace(name)
	return c.Save()
}

// FillDirection returns the configured half-ladder scan order.
func (c *Config) FillDirection() topology.FillDirection {
	dir, err := topology.ParseFillDirection(c.Settings.Fill)
	if err != nil {
		return topology.FillInwards
	}
	return dir
}

// SetFillDirection persists the scan order.
func (c *Config) SetFillDirection(dir topology.FillDirection) error {
	if _, err := topology.ParseFillDirection(string(dir)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Settings.Fill = string(dir)
	return c.Save()
}

// Autosave reports whether every mutation is saved immediately.
func (c *Config) Autosave() bool {
	return c.Settings.Autosave
}

// SetAutosave persists the autosave flag.
func (c *Config) SetAutosave(on bool) error {
	c.Settings.Autosave = on
	return c.Save()
}

// Colors reports whether ANSI colors should be used. NO_COLOR wins.
func (c *Config) Colors() bool {
	return c.Settings.Colors && c.overrides.NoColor == ""
}

// DisplayWidth is the box width used by the terminal UI.
func (c *Config) DisplayWidth() int {
	return c.Settings.DisplayWidth
}

// ZNumbering returns the Z label convention.
func (c *Config) ZNumbering() topology.ZNumbering {
	n, err := topology.ParseZNumbering(c.Settings.ZNumbering)
	if err != nil {
		return topology.ZNumberingOneBased
	}
	return n
}

// Save writes the settings back to bpixm.yaml.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.applyDefaults()
	c.Settings.normalize()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.Path(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

func (c *Config) loadSettings() error {
	path := c.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultSettings()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	c.Settings = parsed
	return nil
}

func defaultSettings() Settings {
	return Settings{
		Version:      1,
		DataDir:      defaultDataDir,
		DataRevision: 1,
		Fill:         string(topology.FillInwards),
		Colors:       true,
		DisplayWidth: defaultDisplayWidth,
		ZNumbering:   string(topology.ZNumberingOneBased),
	}
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if strings.TrimSpace(s.DataDir) == "" {
		s.DataDir = defaultDataDir
	}
	if s.DisplayWidth <= 0 {
		s.DisplayWidth = defaultDisplayWidth
	}
	if s.DataRevision == 0 {
		s.DataRevision = 1
	}
}

func (s *Settings) normalize() {
	s.Operator = strings.TrimSpace(s.Operator)
	s.DataDir = filepath.Clean(strings.TrimSpace(s.DataDir))
	s.Fill = strings.ToLower(strings.TrimSpace(s.Fill))
	if s.Fill == "" {
		s.Fill = string(topology.FillInwards)
	}
	s.ZNumbering = strings.ToLower(strings.TrimSpace(s.ZNumbering))
	if s.ZNumbering == "" {
		s.ZNumbering = string(topology.ZNumberingOneBased)
	}
}

func (s Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if s.DataRevision < 1 {
		return fmt.Errorf("data_revision must be >= 1")
	}
	if filepath.IsAbs(s.DataDir) {
		return fmt.Errorf("data_dir must be relative to the working directory")
	}
	if _, err := topology.ParseFillDirection(s.Fill); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	if _, err := topology.ParseZNumbering(s.ZNumbering); err != nil {
		return fmt.Errorf("z_numbering: %w", err)
	}
	if s.DisplayWidth < 40 {
		return fmt.Errorf("display_width must be >= 40")
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
