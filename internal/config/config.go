// Package config provides the configuration structure for the speech
// gateway. Values come from engine-profile defaults, an optional TOML file
// loaded through the central configurator, and environment variable
// overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/engine"
	"github.com/book-expert/speech-gateway/internal/model"
)

// Environment variable names. PROJECT_TOML is consumed by the configurator
// itself; the rest override individual fields.
const (
	envProjectTOML    = "PROJECT_TOML"
	envEngine         = "TTS_GATEWAY_ENGINE"
	envHost           = "TTS_GATEWAY_HOST"
	envPort           = "TTS_GATEWAY_PORT"
	envDevice         = "TTS_GATEWAY_DEVICE"
	envVoiceDir       = "TTS_GATEWAY_VOICE_DIR"
	envModel          = "TTS_GATEWAY_MODEL"
	envEngineBin      = "TTS_GATEWAY_ENGINE_BIN"
	envLogDir         = "TTS_GATEWAY_LOG_DIR"
	envMaxConcurrent  = "TTS_GATEWAY_MAX_CONCURRENT"
	envTimeoutSeconds = "TTS_GATEWAY_SYNTH_TIMEOUT_SECONDS"
)

// Fallback defaults that are not engine-specific.
const (
	defaultHost           = "127.0.0.1"
	defaultDevice         = "auto"
	defaultTimeoutSeconds = 300
	defaultVoiceSubdir    = "voices"
	appDirName            = "speech-gateway"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// EngineConfig holds the synthesis backend settings.
type EngineConfig struct {
	Name           string `toml:"name"`
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	BinaryPath     string `toml:"binary_path"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VoicesConfig holds the voice-asset store settings.
type VoicesConfig struct {
	Dir        string `toml:"dir"`
	SampleRate int    `toml:"sample_rate"`
}

// PathsConfig holds file path settings.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `toml:"server"`
	Engine EngineConfig `toml:"engine"`
	Voices VoicesConfig `toml:"voices"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load builds the configuration: engine-profile defaults first, then the
// configurator TOML when PROJECT_TOML is set, then env var overrides. The
// resolved engine profile is returned alongside so the caller does not look
// it up twice.
func Load(log *logger.Logger) (*Config, engine.Profile, error) {
	var cfg Config

	if os.Getenv(envProjectTOML) != "" {
		err := configurator.Load(&cfg, log)
		if err != nil {
			return nil, engine.Profile{}, fmt.Errorf(
				"failed to load configuration from configurator: %w", err,
			)
		}
	}

	applyStringEnv(envEngine, &cfg.Engine.Name)

	if cfg.Engine.Name == "" {
		cfg.Engine.Name = engine.BackendChatterbox
	}

	profile, profileErr := engine.ProfileFor(cfg.Engine.Name)
	if profileErr != nil {
		return nil, engine.Profile{}, profileErr
	}

	cfg.applyDefaults(profile)
	cfg.applyEnvOverrides()

	return &cfg, profile, nil
}

// applyDefaults fills every field left empty by the TOML layer from the
// engine profile and the static fallbacks.
func (c *Config) applyDefaults(profile engine.Profile) {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}

	if c.Server.Port == 0 {
		c.Server.Port = profile.DefaultPort
	}

	if c.Engine.Model == "" {
		c.Engine.Model = profile.DefaultModel
	}

	if c.Engine.Device == "" {
		c.Engine.Device = defaultDevice
	}

	if c.Engine.BinaryPath == "" {
		c.Engine.BinaryPath = profile.DefaultBinary
	}

	if c.Engine.MaxConcurrent == 0 {
		c.Engine.MaxConcurrent = model.DefaultMaxConcurrent
	}

	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = defaultTimeoutSeconds
	}

	if c.Voices.Dir == "" {
		c.Voices.Dir = defaultVoiceDir()
	}

	if c.Voices.SampleRate == 0 {
		c.Voices.SampleRate = profile.DefaultSampleRate
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = os.TempDir()
	}
}

// applyEnvOverrides applies the TTS_GATEWAY_* variables on top of whatever
// the TOML layer and defaults produced.
func (c *Config) applyEnvOverrides() {
	applyStringEnv(envHost, &c.Server.Host)
	applyIntEnv(envPort, &c.Server.Port)
	applyStringEnv(envDevice, &c.Engine.Device)
	applyStringEnv(envModel, &c.Engine.Model)
	applyStringEnv(envEngineBin, &c.Engine.BinaryPath)
	applyIntEnv(envMaxConcurrent, &c.Engine.MaxConcurrent)
	applyIntEnv(envTimeoutSeconds, &c.Engine.TimeoutSeconds)
	applyStringEnv(envVoiceDir, &c.Voices.Dir)
	applyStringEnv(envLogDir, &c.Paths.BaseLogsDir)
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// defaultVoiceDir mirrors the historical on-disk layout: a voices directory
// under the user cache, with a temp-dir fallback when home is unavailable.
func defaultVoiceDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName, defaultVoiceSubdir)
	}

	return filepath.Join(homeDir, ".cache", appDirName, defaultVoiceSubdir)
}

func applyStringEnv(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func applyIntEnv(key string, target *int) {
	value := os.Getenv(key)
	if value == "" {
		return
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return
	}

	*target = parsed
}
