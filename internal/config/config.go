// internal/config/config.go
//
// This package handles configuration and the .retorno directory structure.
// Every folder retorno runs in gets a .retorno/ folder holding the project
// config, the session journal and the persisted operator state.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/messaging"
	"github.com/kingrea/retorno/internal/source"
)

const (
	// RetornoDir is the name of the directory we create in each project
	RetornoDir = ".retorno"

	defaultInput   = "base_no_compradores.xlsx"
	defaultOutput  = "resultados.xlsx"
	defaultBackend = "sqlite"

	envInput  = "RETORNO_INPUT"
	envOutput = "RETORNO_OUTPUT"
)

const defaultProjectConfigYAML = `# retorno project configuration
version: 1

# Workbook to triage. A local path (relative to this folder) or an http(s) URL.
input: base_no_compradores.xlsx
# Where "export" writes the updated roster.
output: resultados.xlsx
# Sheet read from the input and written to the output.
sheet: retorno

# Message sent when a customer is contacted. Fields: .Name .Code .Phone
greeting: "Hola {{.Name}}!"

messaging:
  base_url: https://wa.me/

# Where the last viewed position is remembered between sessions.
state:
  backend: sqlite   # sqlite | file
  # path: .retorno/state/retorno.db
`

// MessagingConfig configures the outbound deep link.
type MessagingConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StateConfig selects the key-value backend for persisted operator state.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// ProjectConfig models .retorno/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Input     string          `yaml:"input"`
	Output    string          `yaml:"output"`
	Sheet     string          `yaml:"sheet"`
	Greeting  string          `yaml:"greeting"`
	Messaging MessagingConfig `yaml:"messaging"`
	State     StateConfig     `yaml:"state"`
}

// Overrides carries command-line values that win over the file and env.
type Overrides struct {
	Input  string
	Output string
	Sheet  string
}

// Config holds the runtime configuration for retorno.
type Config struct {
	// ProjectDir is the directory where the user ran `retorno` from
	ProjectDir string

	// RetornoProjectDir is ProjectDir/.retorno
	RetornoProjectDir string

	Project ProjectConfig
}

// InitRetornoDir creates the .retorno directory structure in projectDir.
//
// Structure created:
// .retorno/
// ├── config.yaml
// ├── logs/      <- session journal
// └── state/     <- persisted cursor
func InitRetornoDir(projectDir string) error {
	dir := filepath.Join(projectDir, RetornoDir)
	for _, sub := range []string{"logs", "state"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// NewConfig loads .retorno/config.yaml (defaults when absent) and applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		RetornoProjectDir: filepath.Join(projectDir, RetornoDir),
		Project:           defaultProjectConfig(),
	}
	cfg.Project.normalize(cfg.ProjectDir)
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Apply merges command-line overrides; empty fields are ignored.
func (c *Config) Apply(o Overrides) {
	if v := strings.TrimSpace(o.Input); v != "" {
		c.Project.Input = v
	}
	if v := strings.TrimSpace(o.Output); v != "" {
		c.Project.Output = v
	}
	if v := strings.TrimSpace(o.Sheet); v != "" {
		c.Project.Sheet = v
	}
	c.Project.normalize(c.ProjectDir)
}

func (c *Config) applyEnvOverrides() {
	c.Apply(Overrides{
		Input:  os.Getenv(envInput),
		Output: os.Getenv(envOutput),
	})
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.RetornoProjectDir, "logs")
}

// JournalPath returns the session journal file.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journey.log")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.RetornoProjectDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.RetornoProjectDir, "config.yaml")
}

// Input returns the workbook location (absolute path or URL).
func (c *Config) Input() string { return c.Project.Input }

// Output returns the absolute export path.
func (c *Config) Output() string { return c.Project.Output }

// Sheet returns the agreed sheet name.
func (c *Config) Sheet() string { return c.Project.Sheet }

// Greeting returns the message template.
func (c *Config) Greeting() string { return c.Project.Greeting }

// MessagingBaseURL returns the deep-link prefix.
func (c *Config) MessagingBaseURL() string { return c.Project.Messaging.BaseURL }

// StateBackend returns "sqlite" or "file".
func (c *Config) StateBackend() string { return c.Project.State.Backend }

// StatePath returns the state store location, defaulted per backend.
func (c *Config) StatePath() string {
	if c.Project.State.Path != "" {
		return c.Project.State.Path
	}
	if c.Project.State.Backend == "file" {
		return filepath.Join(c.StateDir(), "state.json")
	}
	return filepath.Join(c.StateDir(), "retorno.db")
}

// SetInput updates the input location and persists it back to
// .retorno/config.yaml so the next session opens the same workbook.
func (c *Config) SetInput(location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("config: input is required")
	}
	c.Project.Input = location
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Input) == "" {
		pc.Input = defaultInput
	}
	if strings.TrimSpace(pc.Output) == "" {
		pc.Output = defaultOutput
	}
	if strings.TrimSpace(pc.Sheet) == "" {
		pc.Sheet = codec.DefaultSheet
	}
	if strings.TrimSpace(pc.Greeting) == "" {
		pc.Greeting = messaging.DefaultGreeting
	}
	if strings.TrimSpace(pc.Messaging.BaseURL) == "" {
		pc.Messaging.BaseURL = messaging.DefaultBaseURL
	}
	if strings.TrimSpace(pc.State.Backend) == "" {
		pc.State.Backend = defaultBackend
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Input = strings.TrimSpace(pc.Input)
	if !source.IsRemote(pc.Input) {
		pc.Input = resolvePath(base, pc.Input)
	}
	pc.Output = resolvePath(base, pc.Output)
	pc.Sheet = strings.TrimSpace(pc.Sheet)
	pc.Messaging.BaseURL = strings.TrimSpace(pc.Messaging.BaseURL)
	pc.State.Backend = strings.ToLower(strings.TrimSpace(pc.State.Backend))
	pc.State.Path = resolvePath(base, pc.State.Path)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Sheet == "" {
		return fmt.Errorf("sheet is required")
	}
	switch pc.State.Backend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("state.backend must be 'sqlite' or 'file'")
	}
	if !strings.HasPrefix(strings.ToLower(pc.Messaging.BaseURL), "https://") &&
		!strings.HasPrefix(strings.ToLower(pc.Messaging.BaseURL), "http://") {
		return fmt.Errorf("messaging.base_url must be an http(s) URL")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.RetornoProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure retorno dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
