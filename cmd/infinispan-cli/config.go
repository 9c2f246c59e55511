package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/infinispan-client/pkg/logging"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

// Config is the resolved CLI configuration. It can be loaded from a YAML
// profile file and is then overridden by flags and environment variables.
type Config struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	Output   string        `yaml:"output"`
}

func defaultConfig() Config {
	return Config{
		URL:      "http://localhost:11222",
		Timeout:  30 * time.Second,
		LogLevel: string(logging.LevelWarn),
		Output:   outputText,
	}
}

// loadProfile reads a YAML profile. Unknown keys are rejected; an empty file
// yields an empty profile.
func loadProfile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	var profile Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return profile, nil
}

// merge returns cfg with every non-zero field of override applied.
func (cfg Config) merge(override Config) Config {
	if override.URL != "" {
		cfg.URL = override.URL
	}
	if override.Username != "" {
		cfg.Username = override.Username
	}
	if override.Password != "" {
		cfg.Password = override.Password
	}
	if override.Timeout != 0 {
		cfg.Timeout = override.Timeout
	}
	if override.LogLevel != "" {
		cfg.LogLevel = override.LogLevel
	}
	if override.Output != "" {
		cfg.Output = override.Output
	}
	return cfg
}

func (cfg Config) validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("server url is required")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if err := logging.ValidateLevel(logging.LogLevel(cfg.LogLevel)); err != nil {
		return err
	}
	if cfg.Output != outputText && cfg.Output != outputJSON {
		return fmt.Errorf("unknown output format %q (want text or json)", cfg.Output)
	}
	return nil
}

// resolveConfig applies defaults, then the profile file, then flags and
// environment variables.
func resolveConfig(c *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if path := c.String("config"); path != "" {
		profile, err := loadProfile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		cfg = cfg.merge(profile)
	}

	if c.IsSet("url") {
		cfg.URL = c.String("url")
	}
	if c.IsSet("user") {
		cfg.Username = c.String("user")
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Infinispan server base URL",
			EnvVars:     []string{"INFINISPAN_URL"},
			DefaultText: "http://localhost:11222",
		},
		&cli.StringFlag{
			Name:    "user",
			Usage:   "Username for Basic authentication",
			EnvVars: []string{"INFINISPAN_USER"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Password for Basic authentication",
			EnvVars: []string{"INFINISPAN_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML profile (url, username, password, timeout, log_level, output)",
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error, disabled)",
			EnvVars:     []string{"LOG_LEVEL"},
			DefaultText: "warn",
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Request timeout",
			DefaultText: "30s",
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output format (text, json)",
			DefaultText: outputText,
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Print client metrics to stderr after the command",
		},
	}
}
