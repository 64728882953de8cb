package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the settings of one sync installation.
type Config struct {
	Jira     JiraConfig     `toml:"jira"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

type JiraConfig struct {
	BaseURL      string        `toml:"base_url"`
	Project      string        `toml:"project"`
	PageSize     int           `toml:"page_size"`
	PointsField  string        `toml:"points_field"`
	HTTPTimeout  time.Duration `toml:"http_timeout"`
	InitialSince time.Time     `toml:"initial_since"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultConfig returns a Config with every optional setting filled in.
func DefaultConfig() *Config {
	return &Config{
		Jira: JiraConfig{
			PageSize:     100,
			PointsField:  "customfield_10002",
			HTTPTimeout:  30 * time.Second,
			InitialSince: time.Unix(0, 0).UTC(),
		},
		Database: DatabaseConfig{
			Path: "data/jira-sync.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// SetENV loads KEY=value lines from the file at path into the process
// environment. A missing file is not an error. Variables already set in the
// environment win over the file.
func SetENV(path string) error {
	envFile, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer envFile.Close()

	scanner := bufio.NewScanner(envFile)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		envVar := strings.SplitN(line, "=", 2)
		if len(envVar) < 2 {
			continue
		}
		key := strings.TrimSpace(envVar[0])
		value := strings.Trim(strings.TrimSpace(envVar[1]), "\"")
		if _, set := os.LookupEnv(key); set {
			continue
		}
		os.Setenv(key, value)
	}
	return scanner.Err()
}

// LoadConfig builds the configuration from, in increasing precedence: the
// defaults, the TOML file at path (skipped when path is empty), the .env file
// at envFile and the process environment.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envFile != "" {
		if err := SetENV(envFile); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Jira.BaseURL, "JIRA_BASE_URL")
	setString(&c.Jira.Project, "JIRA_PROJECT")
	setString(&c.Jira.PointsField, "JIRA_POINTS_FIELD")
	setString(&c.Database.Path, "SYNC_DB_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.File, "LOG_FILE")

	if v := os.Getenv("JIRA_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JIRA_PAGE_SIZE: %w", err)
		}
		c.Jira.PageSize = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration can be used for a sync.
func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return fmt.Errorf("JIRA_BASE_URL not set")
	}
	if !strings.HasPrefix(c.Jira.BaseURL, "http://") && !strings.HasPrefix(c.Jira.BaseURL, "https://") {
		return fmt.Errorf("jira base_url must be an http(s) URL: %s", c.Jira.BaseURL)
	}
	if strings.TrimSpace(c.Jira.Project) == "" {
		return fmt.Errorf("JIRA_PROJECT not set")
	}
	if c.Jira.PageSize <= 0 {
		return fmt.Errorf("jira page_size must be positive")
	}
	if c.Jira.HTTPTimeout < 0 {
		return fmt.Errorf("jira http_timeout must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must be specified")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Log.Format)
	}
	return nil
}
