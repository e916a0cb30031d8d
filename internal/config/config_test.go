package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "messaging-sync.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Sync.ConversationsActive.Duration)
	assert.Equal(t, 60*time.Second, cfg.Sync.ConversationsIdle.Duration)
	assert.Equal(t, 3*time.Second, cfg.Sync.MessagesActive.Duration)
	assert.Equal(t, 15*time.Second, cfg.Sync.MessagesIdle.Duration)
	assert.Equal(t, 2*time.Second, cfg.Sync.TypingActive.Duration)
	assert.Equal(t, 10*time.Second, cfg.Sync.TypingIdle.Duration)
	assert.Equal(t, 3*time.Second, cfg.Sync.TypingDebounce.Duration)
	assert.Equal(t, 4*time.Second, cfg.Sync.TypingDecay.Duration)
	assert.Equal(t, "127.0.0.1:8090", cfg.Bridge.Listen)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://file.example"
timeout = "5s"

[bridge]
token = "from-file"

[sync]
messages_active = "1s"
typing_decay = "6s"
`)
	t.Setenv("SYNC_BRIDGE_TOKEN", "from-env")
	t.Setenv("SYNC_BRIDGE_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout.Duration)
	assert.Equal(t, "from-env", cfg.Bridge.Token)
	assert.True(t, cfg.Bridge.Debug)
	assert.Equal(t, time.Second, cfg.Sync.MessagesActive.Duration)
	assert.Equal(t, 6*time.Second, cfg.Sync.TypingDecay.Duration)
	assert.Equal(t, 15*time.Second, cfg.Sync.MessagesIdle.Duration)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(writeConfig(t, `[sync]
messages_active = "soon"`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `[sync]
typing_idle = "0s"`))
	assert.ErrorContains(t, err, "sync.typing_idle")

	t.Setenv("SYNC_API_TIMEOUT", "ten")
	_, err = Load("")
	assert.ErrorContains(t, err, "SYNC_API_TIMEOUT")
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = ""
	assert.Error(t, cfg.Validate())
}
