package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avivsinai/mail-thread/internal/fsq"
	"github.com/avivsinai/mail-thread/internal/thread"
)

// DefaultIndent is the number of spaces per reply level in text output.
const DefaultIndent = 3

// Config is persisted to meta/config.json and holds the threading defaults
// for a mail root.
type Config struct {
	Version    int    `json:"version"`
	CreatedUTC string `json:"created_utc"`
	// Orphans is "root" (unresolved replies become roots) or "strict".
	Orphans string `json:"orphans,omitempty"`
	// Index resolves parents through an id index instead of a forest walk.
	Index  bool `json:"index,omitempty"`
	Indent int  `json:"indent,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{Orphans: thread.OrphanRoot.String(), Indent: DefaultIndent}
}

// OrphanPolicy parses Orphans.
func (c Config) OrphanPolicy() (thread.OrphanPolicy, error) {
	return thread.ParseOrphanPolicy(c.Orphans)
}

func (c Config) Validate() error {
	if _, err := c.OrphanPolicy(); err != nil {
		return err
	}
	if c.Indent < 0 {
		return fmt.Errorf("indent must be >= 0, got %d", c.Indent)
	}
	return nil
}

func WriteConfig(path string, cfg Config, force bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = fsq.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), data, 0o600)
	return err
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Indent == 0 {
		cfg.Indent = DefaultIndent
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when it does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
