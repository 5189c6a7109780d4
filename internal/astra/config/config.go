// Package config loads the assistant's configuration from a YAML file
// layered under ASTRA_* environment variables, and holds the runtime
// settings toggles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astralab/astra/common/environment"
)

// Config is the full startup configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Voice    VoiceConfig    `yaml:"voice"`
	Settings SettingsConfig `yaml:"settings"`
}

// ServerConfig describes the inference server the assistant talks to.
type ServerConfig struct {
	// URL is the Ollama-compatible base URL.
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
	// KeepAliveSeconds is passed through on every generate call so the
	// model stays resident between turns.
	KeepAliveSeconds int `yaml:"keep_alive_seconds"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
}

// DBConfig locates the SQLite database file.
type DBConfig struct {
	Path string `yaml:"path"`
}

// GatewayConfig configures the local HTTP/WebSocket surface.
type GatewayConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// VoiceConfig names the external text-to-speech command, if any. The
// sentence to speak is appended as the final argument.
type VoiceConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// SettingsConfig holds the initial values for the runtime toggles.
type SettingsConfig struct {
	MemoryEnabled      bool `yaml:"memory_enabled"`
	VoiceOutputEnabled bool `yaml:"voice_output_enabled"`
}

// Default returns the built-in configuration: a local Ollama server and a
// database file in the working directory.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:              "http://localhost:11434",
			Model:            "llama3.2",
			KeepAliveSeconds: 3600,
			TimeoutSeconds:   120,
		},
		DB:      DBConfig{Path: "./astra.db"},
		Gateway: GatewayConfig{ListenAddr: "127.0.0.1:8776"},
		Settings: SettingsConfig{
			MemoryEnabled:      true,
			VoiceOutputEnabled: true,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (skipped when path is empty or the file does not exist),
// overlaid by environment variables. Explicit YAML values — including
// explicit falses — win over defaults; environment wins over both.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Config file is optional.
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.URL = environment.StringOr("ASTRA_SERVER_URL", cfg.Server.URL)
	cfg.Server.Model = environment.StringOr("ASTRA_MODEL", cfg.Server.Model)
	cfg.Server.KeepAliveSeconds = environment.IntOr("ASTRA_KEEP_ALIVE_SECONDS", cfg.Server.KeepAliveSeconds)
	cfg.Server.TimeoutSeconds = environment.IntOr("ASTRA_TIMEOUT_SECONDS", cfg.Server.TimeoutSeconds)
	cfg.DB.Path = environment.StringOr("ASTRA_DB_PATH", cfg.DB.Path)
	cfg.Gateway.ListenAddr = environment.StringOr("ASTRA_LISTEN_ADDR", cfg.Gateway.ListenAddr)
	cfg.Voice.Command = environment.StringOr("ASTRA_VOICE_COMMAND", cfg.Voice.Command)

	if v, set, err := environment.Bool("ASTRA_MEMORY_ENABLED"); err != nil {
		return fmt.Errorf("parse ASTRA_MEMORY_ENABLED: %w", err)
	} else if set {
		cfg.Settings.MemoryEnabled = v
	}
	if v, set, err := environment.Bool("ASTRA_VOICE_ENABLED"); err != nil {
		return fmt.Errorf("parse ASTRA_VOICE_ENABLED: %w", err)
	} else if set {
		cfg.Settings.VoiceOutputEnabled = v
	}
	return nil
}

func (c Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("config: server url must not be empty")
	}
	if c.Server.Model == "" {
		return fmt.Errorf("config: model must not be empty")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("config: db path must not be empty")
	}
	return nil
}
