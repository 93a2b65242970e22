// Package config loads runtime configuration for the DocScrib CLI.
//
// Sources and precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c or -config, or the
//     DOCSCRIB_CONFIG environment variable.
//  3. DOCSCRIB_* environment variables (see parseEnv), e.g.
//     DOCSCRIB_GOOGLE_CLIENT_ID.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the DocScrib API
//	-d string   data directory
//	-i int      session check interval (seconds)
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "server_base_url": "https://api.docscrib.example",
//	  "data_dir": "~/.docscrib",
//	  "database_file": "session.db",
//	  "session_check_interval": "30s",
//	  "request_timeout": "15s",
//	  "token_expiry_leeway": "30s",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "google_client_id": "1234.apps.googleusercontent.com",
//	  "google_redirect_url": "http://localhost:3000/auth/google/callback"
//	}
package config
