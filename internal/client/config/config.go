package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/docscrib/docscrib-cli/internal/logging"
)

// Config holds runtime settings for the DocScrib CLI.
//
// Fields:
//   - ServerBaseURL: scheme://host[:port] of the DocScrib API.
//   - DataDir, DatabaseFile: where the session database (cached profile and
//     tokens) lives. DataDir may start with "~/".
//   - SessionCheckInterval: how often the shell re-checks the session to
//     notice an expired token. Zero disables the watcher.
//   - RequestTimeout: per-request HTTP timeout. Zero means none.
//   - TokenExpiryLeeway: a token is treated as expired this long before its
//     exp claim.
//   - LogLevel, LogFormat: see logging.New.
//   - GoogleClientID, GoogleRedirectURL: enable "login with Google" when both
//     are set.
type Config struct {
	ServerBaseURL        string
	DataDir              string
	DatabaseFile         string
	SessionCheckInterval time.Duration
	RequestTimeout       time.Duration
	TokenExpiryLeeway    time.Duration
	LogLevel             string
	LogFormat            string
	GoogleClientID       string
	GoogleRedirectURL    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:8000"
	c.DataDir = "~/.docscrib"
	c.DatabaseFile = "session.db"
	c.SessionCheckInterval = 30 * time.Second
	c.RequestTimeout = 0
	c.TokenExpiryLeeway = 30 * time.Second
	c.LogLevel = "info"
	c.LogFormat = logging.FormatText
	c.GoogleClientID = ""
	c.GoogleRedirectURL = "http://localhost:3000/auth/google/callback"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server base url %q must be an absolute http(s) URL", c.ServerBaseURL))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is empty"))
	}
	if c.DatabaseFile == "" {
		errs = append(errs, errors.New("database file is empty"))
	}
	if c.SessionCheckInterval < 0 || c.RequestTimeout < 0 || c.TokenExpiryLeeway < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON, logging.FormatZap:
	default:
		errs = append(errs, fmt.Errorf("log format %q is not one of text, json, zap", c.LogFormat))
	}

	return errors.Join(errs...)
}

// GoogleEnabled reports whether external-identity login is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleRedirectURL != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), DOCSCRIB_* environment variables and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
