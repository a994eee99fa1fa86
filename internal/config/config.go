// internal/config/config.go
//
// This package handles configuration and the .autons directory structure.
// Every robot project that runs the simulator gets a .autons/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AutonsDir is the name of the directory we create in each project
	AutonsDir = ".autons"

	defaultTimeline     = "match"
	defaultTheme        = "dark"
	defaultBridgeHost   = "127.0.0.1"
	defaultBridgePort   = 8765
	defaultPollInterval = time.Second / 60
	defaultMaxFailures  = 5
)

const defaultProjectConfigYAML = `# autons project configuration
version: 1

# Route selector behaviour on the simulated brain screen.
selector:
  poll_interval: 16ms
  max_device_failures: 5
  theme: dark          # dark | light
  default_route: ""    # route name highlighted when selection opens

# HTTP bridge that lets another process act as the field controller.
field_bridge:
  enabled: true
  host: 127.0.0.1
  port: 8765

# Scripted match timelines live in .autons/timelines/<name>.yaml.
timelines:
  default: match
`

const defaultTimelineYAML = `# A standard match: pre-match disable, autonomous, short pause, driver control.
name: match
description: 15s autonomous followed by 1:45 of driver control
steps:
  - phase: disabled
    duration: 10s
  - phase: autonomous
    duration: 15s
  - phase: disabled
    duration: 2s
  - phase: driver
    duration: 1m45s
  - phase: disabled
    duration: 1s
`

// SelectorConfig tunes the on-robot route selector.
type SelectorConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxDeviceFailures int           `yaml:"max_device_failures"`
	Theme             string        `yaml:"theme"`
	DefaultRoute      string        `yaml:"default_route"`
}

// FieldBridgeConfig configures the HTTP field bridge.
type FieldBridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// TimelineConfig captures timeline preferences.
type TimelineConfig struct {
	Default string `yaml:"default"`
}

// ProjectConfig models .autons/config.yaml.
type ProjectConfig struct {
	Version     int               `yaml:"version"`
	Selector    SelectorConfig    `yaml:"selector"`
	FieldBridge FieldBridgeConfig `yaml:"field_bridge"`
	Timelines   TimelineConfig    `yaml:"timelines"`
}

// Config holds the runtime configuration for a project.
type Config struct {
	// ProjectDir is the directory where the user ran `autons` from
	ProjectDir string

	// AutonsProjectDir is ProjectDir/.autons
	AutonsProjectDir string

	Project ProjectConfig
}

// InitDir creates the .autons directory structure in the given project directory.
//
// Structure created:
// .autons/
// ├── config.yaml
// ├── logs/          <- autons.log and the match journal
// └── timelines/     <- scripted field controller timelines
//
//	└── match.yaml
func InitDir(projectDir string) error {
	autonsDir := filepath.Join(projectDir, AutonsDir)

	dirs := []string{
		filepath.Join(autonsDir, "logs"),
		filepath.Join(autonsDir, "timelines"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if err := ensureFile(filepath.Join(autonsDir, "config.yaml"), defaultProjectConfigYAML); err != nil {
		return err
	}
	return ensureFile(filepath.Join(autonsDir, "timelines", defaultTimeline+".yaml"), defaultTimelineYAML)
}

// NewConfig creates a new Config instance populated with project settings.
// A missing config file yields the defaults.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		AutonsProjectDir: filepath.Join(projectDir, AutonsDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.AutonsProjectDir, "logs")
}

// JournalPath returns the match journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "match.log")
}

// TimelinesDir returns the directory holding timeline files
func (c *Config) TimelinesDir() string {
	return filepath.Join(c.AutonsProjectDir, "timelines")
}

// TimelinePath resolves a timeline name (or the default when empty) to its file.
func (c *Config) TimelinePath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.Project.Timelines.Default
	}
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.TimelinesDir(), name)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AutonsProjectDir, "config.yaml")
}

// DefaultTimeline returns the configured default timeline name.
func (c *Config) DefaultTimeline() string {
	return c.Project.Timelines.Default
}

// SetDefaultTimeline updates the default timeline and persists the value back
// to .autons/config.yaml.
func (c *Config) SetDefaultTimeline(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("config: timeline name is required")
	}
	c.Project.Timelines.Default = name
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
	parsed.normalize()
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
	if pc.Selector.PollInterval == 0 {
		pc.Selector.PollInterval = defaultPollInterval
	}
	if pc.Selector.MaxDeviceFailures == 0 {
		pc.Selector.MaxDeviceFailures = defaultMaxFailures
	}
	if pc.Selector.Theme == "" {
		pc.Selector.Theme = defaultTheme
	}
	if pc.FieldBridge.Host == "" {
		pc.FieldBridge.Host = defaultBridgeHost
	}
	if pc.FieldBridge.Port == 0 {
		pc.FieldBridge.Port = defaultBridgePort
	}
	if pc.Timelines.Default == "" {
		pc.Timelines.Default = defaultTimeline
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Selector.Theme = strings.ToLower(strings.TrimSpace(pc.Selector.Theme))
	pc.Selector.DefaultRoute = strings.TrimSpace(pc.Selector.DefaultRoute)
	pc.FieldBridge.Host = strings.TrimSpace(pc.FieldBridge.Host)
	pc.Timelines.Default = strings.TrimSpace(pc.Timelines.Default)
	if pc.Timelines.Default == "" {
		pc.Timelines.Default = defaultTimeline
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Selector.PollInterval < 0 {
		return fmt.Errorf("selector.poll_interval must be positive")
	}
	if pc.Selector.MaxDeviceFailures < 0 {
		return fmt.Errorf("selector.max_device_failures must be positive")
	}
	switch pc.Selector.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("selector.theme must be 'dark' or 'light'")
	}
	if pc.FieldBridge.Port < 0 || pc.FieldBridge.Port > 65535 {
		return fmt.Errorf("field_bridge.port %d out of range", pc.FieldBridge.Port)
	}
	return nil
}

func ensureFile(path, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.AutonsProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure autons dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
