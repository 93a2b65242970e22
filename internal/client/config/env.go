package config

import "os"

// Environment variables read by parseEnv.
const (
	EnvServerBaseURL     = "DOCSCRIB_API_URL"
	EnvDataDir           = "DOCSCRIB_DATA_DIR"
	EnvLogLevel          = "DOCSCRIB_LOG_LEVEL"
	EnvLogFormat         = "DOCSCRIB_LOG_FORMAT"
	EnvGoogleClientID    = "DOCSCRIB_GOOGLE_CLIENT_ID"
	EnvGoogleRedirectURL = "DOCSCRIB_GOOGLE_REDIRECT_URL"
)

// parseEnv overlays non-empty environment variables on cfg. It runs after
// the JSON file and before flags.
func parseEnv(cfg *Config) {
	getenv(EnvServerBaseURL, &cfg.ServerBaseURL)
	getenv(EnvDataDir, &cfg.DataDir)
	getenv(EnvLogLevel, &cfg.LogLevel)
	getenv(EnvLogFormat, &cfg.LogFormat)
	getenv(EnvGoogleClientID, &cfg.GoogleClientID)
	getenv(EnvGoogleRedirectURL, &cfg.GoogleRedirectURL)
}

func getenv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
