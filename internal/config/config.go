// Package config loads application configuration from YAML files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	History  HistoryConfig  `yaml:"history"`
	Detector DetectorConfig `yaml:"detector"`
	Engine   EngineConfig   `yaml:"engine"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SpotifyConfig holds Spotify app credentials.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// HistoryConfig holds the listening history file settings.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// DetectorConfig selects the emotion source.
type DetectorConfig struct {
	// Mode is "simulated" or "remote".
	Mode string `yaml:"mode"`
	// ModelURL is the remote detection model endpoint, required for
	// remote mode.
	ModelURL string `yaml:"model_url"`
}

// EngineConfig holds recommendation engine settings.
type EngineConfig struct {
	// Mode is "features" (score candidates by audio features) or
	// "keywords" (keyword search fallback).
	Mode string `yaml:"mode"`
	// DefaultLimit is the track count returned when a request does not
	// specify one.
	DefaultLimit int `yaml:"default_limit"`
}

// defaults returns a Config with sensible defaults.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
		},
		History: HistoryConfig{
			Path: "data/listening_history.json",
		},
		Detector: DetectorConfig{
			Mode: "simulated",
		},
		Engine: EngineConfig{
			Mode:         "features",
			DefaultLimit: 20,
		},
	}
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order; later files override earlier ones, and
// environment variables override file values. Missing files are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := defaults()

	for _, path := range paths {
		if err := loadFile(cfg, path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		cfg.Spotify.ClientSecret = v
	}
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client_id and client_secret are required (set SPOTIFY_ID and SPOTIFY_SECRET)")
	}
	switch c.Detector.Mode {
	case "simulated":
	case "remote":
		if c.Detector.ModelURL == "" {
			return fmt.Errorf("detector model_url is required in remote mode")
		}
	default:
		return fmt.Errorf("unknown detector mode %q", c.Detector.Mode)
	}
	switch c.Engine.Mode {
	case "features", "keywords":
	default:
		return fmt.Errorf("unknown engine mode %q", c.Engine.Mode)
	}
	if c.Engine.DefaultLimit <= 0 {
		return fmt.Errorf("engine default_limit must be positive")
	}
	return nil
}
