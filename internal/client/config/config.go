package config

import "time"

// Config holds runtime settings for the photobatch CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend REST endpoint.
//   - WSEndpointAddr: URL of the upload progress WebSocket endpoint.
//   - AuthToken: optional bearer token; empty means anonymous.
//   - PollInterval: tick of the poll fallback monitor.
//   - PerFileTimeout: transfer timeout budget per file in a batch.
//   - MaxTransferTimeout: hard cap on a single transfer attempt.
//   - ConnectWaitTimeout: how long a batch waits for the push channel
//     before proceeding without it.
//   - MaxReconnectAttempts: push channel reconnect attempts before giving up.
//   - ReconnectBackoff: fixed delay between reconnect attempts.
//   - HistoryDBPath: sqlite file of the upload journal; empty disables it.
type Config struct {
	ServerEndpointAddr   string
	WSEndpointAddr       string
	AuthToken            string
	PollInterval         time.Duration
	PerFileTimeout       time.Duration
	MaxTransferTimeout   time.Duration
	ConnectWaitTimeout   time.Duration
	MaxReconnectAttempts int
	ReconnectBackoff     time.Duration
	HistoryDBPath        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.WSEndpointAddr = "ws://127.0.0.1:8080/ws/upload-progress"
	c.AuthToken = ""
	c.PollInterval = 2 * time.Second
	c.PerFileTimeout = 30 * time.Second
	c.MaxTransferTimeout = 5 * time.Minute
	c.ConnectWaitTimeout = 3 * time.Second
	c.MaxReconnectAttempts = 5
	c.ReconnectBackoff = 2 * time.Second
	c.HistoryDBPath = "history.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
