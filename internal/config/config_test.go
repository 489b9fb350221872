// Package config_test tests the configuration loading for the speech gateway.
package config_test

import (
	"testing"

	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/config"
	"github.com/book-expert/speech-gateway/internal/engine"
)

func TestUnmarshalTOML(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
host = "0.0.0.0"
port = 5553

[engine]
name = "chatterbox"
model = "chatterbox-turbo"
device = "cuda"
binary_path = "/opt/tts/chatterbox-tts"
max_concurrent = 4
timeout_seconds = 120

[voices]
dir = "/var/lib/speech-gateway/voices"
sample_rate = 24000

[paths]
base_logs_dir = "/var/log/speech-gateway"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5553, cfg.Server.Port)
	assert.Equal(t, "chatterbox", cfg.Engine.Name)
	assert.Equal(t, "chatterbox-turbo", cfg.Engine.Model)
	assert.Equal(t, "cuda", cfg.Engine.Device)
	assert.Equal(t, "/opt/tts/chatterbox-tts", cfg.Engine.BinaryPath)
	assert.Equal(t, 4, cfg.Engine.MaxConcurrent)
	assert.Equal(t, 120, cfg.Engine.TimeoutSeconds)
	assert.Equal(t, "/var/lib/speech-gateway/voices", cfg.Voices.Dir)
	assert.Equal(t, 24000, cfg.Voices.SampleRate)
	assert.Equal(t, "/var/log/speech-gateway", cfg.Paths.BaseLogsDir)
}

func TestLoadDefaultsChatterbox(t *testing.T) {
	t.Setenv("PROJECT_TOML", "")

	log := newTestLogger(t)

	cfg, profile, err := config.Load(log)
	require.NoError(t, err)

	assert.Equal(t, engine.BackendChatterbox, profile.Name)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5553, cfg.Server.Port)
	assert.Equal(t, "auto", cfg.Engine.Device)
	assert.Equal(t, "chatterbox-turbo", cfg.Engine.Model)
	assert.Equal(t, 24000, cfg.Voices.SampleRate)
	assert.NotEmpty(t, cfg.Voices.Dir)
	assert.Equal(t, "127.0.0.1:5553", cfg.ListenAddr())
}

func TestLoadCoquiProfile(t *testing.T) {
	t.Setenv("PROJECT_TOML", "")
	t.Setenv("TTS_GATEWAY_ENGINE", "coqui")

	log := newTestLogger(t)

	cfg, profile, err := config.Load(log)
	require.NoError(t, err)

	assert.Equal(t, engine.BackendCoqui, profile.Name)
	assert.Equal(t, 5554, cfg.Server.Port)
	assert.Equal(t, "tts_models/en/jenny/jenny", cfg.Engine.Model)
	assert.Equal(t, 22050, cfg.Voices.SampleRate)
	assert.False(t, profile.Device.AllowMPS)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROJECT_TOML", "")
	t.Setenv("TTS_GATEWAY_HOST", "0.0.0.0")
	t.Setenv("TTS_GATEWAY_PORT", "9000")
	t.Setenv("TTS_GATEWAY_DEVICE", "cpu")
	t.Setenv("TTS_GATEWAY_VOICE_DIR", "/tmp/voices-test")
	t.Setenv("TTS_GATEWAY_MAX_CONCURRENT", "8")

	log := newTestLogger(t)

	cfg, _, err := config.Load(log)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "cpu", cfg.Engine.Device)
	assert.Equal(t, "/tmp/voices-test", cfg.Voices.Dir)
	assert.Equal(t, 8, cfg.Engine.MaxConcurrent)
}

func TestLoadUnknownEngine(t *testing.T) {
	t.Setenv("PROJECT_TOML", "")
	t.Setenv("TTS_GATEWAY_ENGINE", "nonexistent")

	log := newTestLogger(t)

	_, _, err := config.Load(log)
	require.Error(t, err)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "config-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}
