package config

import (
	"encoding/json"
	"os"

	"github.com/docscrib/docscrib-cli/internal/flagx"
	"github.com/docscrib/docscrib-cli/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// durations tell "absent" from an explicit zero, which is meaningful for
// the request timeout and the session watcher.
type JsonConfig struct {
	ServerBaseURL        string          `json:"server_base_url"`
	DataDir              string          `json:"data_dir"`
	DatabaseFile         string          `json:"database_file"`
	SessionCheckInterval *timex.Duration `json:"session_check_interval"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	TokenExpiryLeeway    *timex.Duration `json:"token_expiry_leeway"`
	LogLevel             string          `json:"log_level"`
	LogFormat            string          `json:"log_format"`
	GoogleClientID       string          `json:"google_client_id"`
	GoogleRedirectURL    string          `json:"google_redirect_url"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from -c/-config, else $DOCSCRIB_CONFIG (see
// flagx.ConfigFilePath). Without a path nothing is loaded. Only keys present
// in the file override earlier values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabaseFile, jc.DatabaseFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.GoogleClientID, jc.GoogleClientID)
	setString(&cfg.GoogleRedirectURL, jc.GoogleRedirectURL)

	if jc.SessionCheckInterval != nil {
		cfg.SessionCheckInterval = jc.SessionCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.TokenExpiryLeeway != nil {
		cfg.TokenExpiryLeeway = jc.TokenExpiryLeeway.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
