package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAI synthesizes speech with the OpenAI TTS API and writes mp3 files.
type OpenAI struct {
	client   *openai.Client
	voice    openai.SpeechVoice
	audioDir string
	player   string
	run      runFunc
	now      func() time.Time
	logger   *logrus.Logger
}

// NewOpenAI creates an OpenAI speaker from cfg.
func NewOpenAI(cfg Config, logger *logrus.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	dir := cfg.AudioDir
	if dir == "" {
		dir = os.TempDir()
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		voice:    voiceFor(cfg.Voice),
		audioDir: dir,
		player:   strings.TrimSpace(cfg.Player),
		run:      runCommand,
		now:      time.Now,
		logger:   logger,
	}
}

func voiceFor(name string) openai.SpeechVoice {
	switch strings.ToLower(name) {
	case "echo":
		return openai.VoiceEcho
	case "fable":
		return openai.VoiceFable
	case "onyx":
		return openai.VoiceOnyx
	case "nova":
		return openai.VoiceNova
	case "shimmer":
		return openai.VoiceShimmer
	default:
		return openai.VoiceAlloy
	}
}

// Speak writes the synthesized audio and plays it when a player is set.
func (o *OpenAI) Speak(ctx context.Context, u Utterance) error {
	path, err := o.Synthesize(ctx, u)
	if err != nil {
		return err
	}
	if o.player == "" {
		o.logger.WithField("file", path).Info("speech written")
		return nil
	}
	fields := strings.Fields(o.player)
	return o.run(ctx, fields[0], append(fields[1:], path)...)
}

// Synthesize writes u as an mp3 file and returns its path.
func (o *OpenAI) Synthesize(ctx context.Context, u Utterance) (string, error) {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          u.Text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          rate,
	}
	response, err := o.client.CreateSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create speech: %w", err)
	}
	defer func() {
		if cerr := response.Close(); cerr != nil {
			// Best-effort close of the audio stream.
			_ = cerr
		}
	}()

	if err := os.MkdirAll(o.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	path := filepath.Join(o.audioDir, "easytalk-"+o.now().Format("20060102-150405.000")+".mp3")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(file, response); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close audio file: %w", err)
	}
	o.logger.WithFields(logrus.Fields{"file": path, "voice": o.voice}).Debug("speech synthesized")
	return path, nil
}
