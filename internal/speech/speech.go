// Package speech reads converted sentences aloud.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultRate is the speaking rate used for converted sentences.
const DefaultRate = 0.8

// DefaultLang is the language tag of every utterance.
const DefaultLang = "ko-KR"

// Engine names.
const (
	EngineNone   = "none"
	EngineEspeak = "espeak"
	EngineOpenAI = "openai"
)

// Utterance is one sentence to speak.
type Utterance struct {
	Text string
	Lang string
	// Rate is relative to normal speed, 1.0 being normal.
	Rate float64
}

// NewUtterance builds an utterance with the default language and rate.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Lang: DefaultLang, Rate: DefaultRate}
}

// Speaker synthesizes an utterance.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
}

// Config selects and configures an engine.
type Config struct {
	Engine    string
	Voice     string
	OpenAIKey string
	// OpenAIBaseURL overrides the API endpoint.
	OpenAIBaseURL string
	// AudioDir receives files written by the openai engine.
	AudioDir string
	// Player is run with the written file as its last argument.
	Player string
}

// New returns the speaker for cfg.Engine. An empty engine disables speech.
func New(cfg Config, logger *logrus.Logger) (Speaker, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineNone:
		return Silent{}, nil
	case EngineEspeak:
		return NewEspeak(logger), nil
	case EngineOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai speech engine needs an API key")
		}
		return NewOpenAI(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

// Silent discards every utterance.
type Silent struct{}

// Speak does nothing.
func (Silent) Speak(context.Context, Utterance) error { return nil }

// Go speaks u in the background and logs failures. Speech is never allowed
// to block or fail a conversion.
func Go(ctx context.Context, s Speaker, u Utterance, logger *logrus.Logger) {
	if s == nil || strings.TrimSpace(u.Text) == "" {
		return
	}
	if _, silent := s.(Silent); silent {
		return
	}
	go func() {
		if err := s.Speak(ctx, u); err != nil && logger != nil {
			logger.WithError(err).Warn("speech output failed")
		}
	}()
}
