package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	yaml "gopkg.in/yaml.v3"
)

const (
	DefaultFormat = "json"
	DefaultIndent = 2
)

// Profile is a named set of conversion defaults.
type Profile struct {
	Name      string
	Format    string `yaml:"format"`
	Indent    int    `yaml:"indent"`
	Compact   bool   `yaml:"compact"`
	Jobs      int    `yaml:"jobs"`
	OutputDir string `yaml:"output-dir"`
	Overwrite bool   `yaml:"overwrite"`
}

// DefaultProfile is used when the config names no profile.
func DefaultProfile() *Profile {
	return &Profile{Name: "default", Format: DefaultFormat, Indent: DefaultIndent}
}

// EffectiveIndent returns the JSON indent width, zero meaning compact.
func (p *Profile) EffectiveIndent() int {
	switch {
	case p.Compact:
		return 0
	case p.Indent <= 0:
		return DefaultIndent
	default:
		return p.Indent
	}
}

// EffectiveFormat returns the document format, falling back to JSON.
func (p *Profile) EffectiveFormat() string {
	if p.Format == "" {
		return DefaultFormat
	}
	return p.Format
}

// ExpandedOutputDir resolves a leading ~ in OutputDir.
func (p *Profile) ExpandedOutputDir() (string, error) {
	if p.OutputDir == "" {
		return "", nil
	}
	dir, err := homedir.Expand(p.OutputDir)
	if err != nil {
		return "", fmt.Errorf("expand output dir %q: %w", p.OutputDir, err)
	}
	return dir, nil
}

type Config struct {
	CurrentProfile  string     `yaml:"current-profile"`
	ProfileOverride string     `yaml:"-"`
	Profiles        []*Profile `yaml:"profiles"`
	// configPath is the file path used for reading and writing this config.
	configPath string `yaml:"-"`
}

func (c *Config) HasProfile(name string) bool {
	for _, p := range c.Profiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (c *Config) SetCurrentProfile(name string) error {
	if !c.HasProfile(name) {
		return fmt.Errorf("could not find profile with name %v", name)
	}
	old := c.CurrentProfile
	c.CurrentProfile = name
	if err := c.Write(); err != nil {
		c.CurrentProfile = old
		return err
	}
	return nil
}

// RemoveProfile deletes the named profile and clears the current profile if
// it pointed at it.
func (c *Config) RemoveProfile(name string) error {
	pos := -1
	for i, p := range c.Profiles {
		if p.Name == name {
			pos = i
			break
		}
	}
	if pos == -1 {
		return fmt.Errorf("profile with name '%v' does not exist", name)
	}
	c.Profiles = append(c.Profiles[:pos], c.Profiles[pos+1:]...)
	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}
	return nil
}

// ActiveProfile returns a copy of the override or current profile, or nil.
func (c *Config) ActiveProfile() *Profile {
	if c == nil {
		return nil
	}

	toSearch := c.ProfileOverride
	if toSearch == "" {
		toSearch = c.CurrentProfile
	}
	if toSearch == "" {
		return nil
	}

	for _, p := range c.Profiles {
		if p.Name == toSearch {
			// copy, so flag overrides are not written back
			cp := *p
			return &cp
		}
	}
	return nil
}

// Path returns the file the config was read from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) Write() error {
	configPath := c.configPath
	if configPath == "" {
		var err error
		configPath, err = getDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(configDir, "config.*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()

	encoder := yaml.NewEncoder(tmpFile)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp config file: %w", err)
	}
	return nil
}

func ReadConfig(cfgPath string) (c Config, err error) {
	resolvedPath, err := resolveConfigPath(cfgPath)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{configPath: resolvedPath}, nil
		}
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.configPath = resolvedPath
	return c, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func resolveConfigPath(cfgPath string) (string, error) {
	if cfgPath == "" {
		return getDefaultConfigPath()
	}
	expanded, err := homedir.Expand(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path: %w", err)
	}
	if !fileExists(expanded) {
		return "", fmt.Errorf("config file %q does not exist", cfgPath)
	}
	return expanded, nil
}

func getDefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	return filepath.Join(home, ".ainb", "config"), nil
}
