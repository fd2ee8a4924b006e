package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photobatch/internal/flagx"
	"github.com/dmitrijs2005/photobatch/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "2s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr   string         `json:"server_endpoint_addr"`
	WSEndpointAddr       string         `json:"ws_endpoint_addr"`
	AuthToken            string         `json:"auth_token"`
	PollInterval         timex.Duration `json:"poll_interval"`
	PerFileTimeout       timex.Duration `json:"per_file_timeout"`
	MaxTransferTimeout   timex.Duration `json:"max_transfer_timeout"`
	ConnectWaitTimeout   timex.Duration `json:"connect_wait_timeout"`
	MaxReconnectAttempts int            `json:"max_reconnect_attempts"`
	ReconnectBackoff     timex.Duration `json:"reconnect_backoff"`
	HistoryDBPath        string         `json:"history_db_path"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config; fields absent from the
//     file keep their earlier values.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.WSEndpointAddr != "" {
		cfg.WSEndpointAddr = jc.WSEndpointAddr
	}
	if jc.AuthToken != "" {
		cfg.AuthToken = jc.AuthToken
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	}
	if jc.PerFileTimeout.Duration != 0 {
		cfg.PerFileTimeout = time.Duration(jc.PerFileTimeout.Duration)
	}
	if jc.MaxTransferTimeout.Duration != 0 {
		cfg.MaxTransferTimeout = time.Duration(jc.MaxTransferTimeout.Duration)
	}
	if jc.ConnectWaitTimeout.Duration != 0 {
		cfg.ConnectWaitTimeout = time.Duration(jc.ConnectWaitTimeout.Duration)
	}
	if jc.MaxReconnectAttempts != 0 {
		cfg.MaxReconnectAttempts = jc.MaxReconnectAttempts
	}
	if jc.ReconnectBackoff.Duration != 0 {
		cfg.ReconnectBackoff = time.Duration(jc.ReconnectBackoff.Duration)
	}
	if jc.HistoryDBPath != "" {
		cfg.HistoryDBPath = jc.HistoryDBPath
	}
}
