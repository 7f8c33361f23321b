package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = ".mermaidcheck.yaml"

// DefaultTOMLFile is used when DefaultConfigFile is absent.
const DefaultTOMLFile = ".mermaidcheck.toml"

// Formats lists the accepted report formats.
var Formats = []string{"console", "json", "markdown"}

// DefaultPath returns the configuration file looked up when none is named.
func DefaultPath() string {
	if _, err := os.Stat(DefaultConfigFile); err != nil {
		if _, err := os.Stat(DefaultTOMLFile); err == nil {
			return DefaultTOMLFile
		}
	}
	return DefaultConfigFile
}

// LoadFrom returns a Config loaded from the given path using the hierarchy:
// defaults < file < ENV. The file is optional. A .toml extension selects
// TOML; anything else is read as YAML.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg, path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	loadEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadFile reads the config file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setList(&cfg.Check.Extensions, "MERMAIDCHECK_EXTENSIONS")
	setInt(&cfg.Check.Jobs, "MERMAIDCHECK_JOBS")
	setDuration(&cfg.Check.Timeout, "MERMAIDCHECK_TIMEOUT")
	setBool(&cfg.Check.IgnoreQuotedArrows, "MERMAIDCHECK_IGNORE_QUOTED_ARROWS")
	setBool(&cfg.Check.Strict, "MERMAIDCHECK_STRICT")

	setBool(&cfg.Fix.Enabled, "MERMAIDCHECK_FIX")
	setBool(&cfg.Fix.Write, "MERMAIDCHECK_WRITE")
	setBool(&cfg.Fix.EscapeLabels, "MERMAIDCHECK_ESCAPE_LABELS")

	setBool(&cfg.Links.Enabled, "MERMAIDCHECK_LINKS")
	setBool(&cfg.Links.External, "MERMAIDCHECK_EXTERNAL_LINKS")
	setDuration(&cfg.Links.Timeout, "MERMAIDCHECK_LINK_TIMEOUT")
	setInt(&cfg.Links.MaxAttempts, "MERMAIDCHECK_LINK_ATTEMPTS")
	setString(&cfg.Links.UserAgent, "MERMAIDCHECK_USER_AGENT")

	setString(&cfg.Output.Format, "MERMAIDCHECK_FORMAT")
	setString(&cfg.Output.File, "MERMAIDCHECK_OUTPUT")
	setString(&cfg.Output.ExtractDir, "MERMAIDCHECK_EXTRACT_DIR")

	setBool(&cfg.Logging.Verbose, "MERMAIDCHECK_VERBOSE")
}

// Validate checks that settings are usable.
func Validate(cfg *Config) error {
	if cfg.Check.Jobs < 0 {
		return errors.New("check.jobs must be >= 0")
	}
	if cfg.Check.Timeout < 0 {
		return errors.New("check.timeout must be >= 0")
	}
	if cfg.Links.MaxAttempts < 1 {
		return errors.New("links.max_attempts must be >= 1")
	}
	if cfg.Fix.Write && !cfg.Fix.Enabled {
		return errors.New("fix.write requires fix.enabled")
	}
	for _, f := range Formats {
		if cfg.Output.Format == f {
			return nil
		}
	}
	return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(Formats, ", "), cfg.Output.Format)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
