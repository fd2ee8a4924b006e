// Package config loads runtime configuration for the photobatch CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST endpoint
//	-w string   URL of the upload progress WebSocket endpoint
//	-t string   bearer token for authenticated uploads
//	-p int      poll fallback interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "2s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "ws_endpoint_addr": "ws://127.0.0.1:8080/ws/upload-progress",
//	  "poll_interval": "2s",
//	  "per_file_timeout": "30s",
//	  "max_transfer_timeout": "5m",
//	  "history_db_path": "history.db"
//	}
//
// Primary API
//
//   - type Config                     — runtime settings of the upload client
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
