package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvRemoteURL    = "EASYTALK_REMOTE_URL"
	EnvSpeechEngine = "EASYTALK_SPEECH_ENGINE"
	EnvStyle        = "EASYTALK_STYLE"
	EnvLogLevel     = "EASYTALK_LOG_LEVEL"
	EnvRateLimit    = "EASYTALK_RATE_LIMIT"
)

// LoadEnv loads dotenv files into the process environment. Variables that
// are already set win. Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv fills unset fields of cfg from the environment. File values take
// precedence over the environment; flags take precedence over both.
func ApplyEnv(cfg *FileConfig) error {
	setString(&cfg.Remote.APIKey, EnvGeminiKey)
	setString(&cfg.Remote.URL, EnvRemoteURL)
	setString(&cfg.Speech.OpenAIKey, EnvOpenAIKey)
	setString(&cfg.Speech.Engine, EnvSpeechEngine)
	setString(&cfg.Session.Style, EnvStyle)
	setString(&cfg.Log.Level, EnvLogLevel)
	if cfg.Remote.RateLimit == nil {
		if v, ok := os.LookupEnv(EnvRateLimit); ok && v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", EnvRateLimit, err)
			}
			cfg.Remote.RateLimit = &parsed
		}
	}
	return nil
}

func setString(dst **string, env string) {
	if *dst != nil {
		return
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = &v
	}
}
