package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerEndpointAddr)
	assert.Equal(t, "ws://127.0.0.1:8080/ws/upload-progress", c.WSEndpointAddr)
	assert.Empty(t, c.AuthToken)
	assert.Equal(t, 2*time.Second, c.PollInterval)
	assert.Equal(t, 30*time.Second, c.PerFileTimeout)
	assert.Equal(t, 5*time.Minute, c.MaxTransferTimeout)
	assert.Equal(t, 3*time.Second, c.ConnectWaitTimeout)
	assert.Equal(t, 5, c.MaxReconnectAttempts)
	assert.Equal(t, 2*time.Second, c.ReconnectBackoff)
	assert.Equal(t, "history.db", c.HistoryDBPath)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}
