// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Remote  RemoteConfig  `toml:"remote"`
	Speech  SpeechConfig  `toml:"speech"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// RemoteConfig maps model endpoint settings.
type RemoteConfig struct {
	APIKey    *string  `toml:"api-key"`
	URL       *string  `toml:"url"`
	Timeout   *string  `toml:"timeout"`
	RateLimit *float64 `toml:"rate-limit"`
}

// SpeechConfig maps text-to-speech settings.
type SpeechConfig struct {
	Engine    *string  `toml:"engine"`
	Voice     *string  `toml:"voice"`
	Rate      *float64 `toml:"rate"`
	OpenAIKey *string  `toml:"openai-key"`
	Player    *string  `toml:"player"`
}

// SessionConfig maps conversion defaults.
type SessionConfig struct {
	Style        *string `toml:"style"`
	HistoryLimit *int    `toml:"history-limit"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by `easytalk config` when no file exists yet.
const Template = `# easytalk configuration

[remote]
# api-key = "AIza..."
# url = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-exp:generateContent"
# timeout = "30s"
# rate-limit = 1.0

[speech]
# engine = "none"   # none, espeak or openai
# voice = "alloy"
# rate = 0.8
# openai-key = "sk-..."
# player = "mpv"     # plays files written by the openai engine

[session]
# style = "polite"  # polite or casual
# history-limit = 30

[log]
# level = "info"
# file = ""
`
