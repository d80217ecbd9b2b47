package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// espeak-ng speaks at this many words per minute at rate 1.0.
const espeakBaseWPM = 175

type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return fmt.Errorf("failed to run %s: %w: %s", name, err, msg)
	}
	return nil
}

// Espeak speaks through the local espeak-ng binary.
type Espeak struct {
	binary string
	run    runFunc
	logger *logrus.Logger
}

// NewEspeak creates an espeak-ng speaker.
func NewEspeak(logger *logrus.Logger) *Espeak {
	return &Espeak{binary: "espeak-ng", run: runCommand, logger: logger}
}

// Speak blocks until espeak-ng finishes.
func (e *Espeak) Speak(ctx context.Context, u Utterance) error {
	e.logger.WithField("chars", len([]rune(u.Text))).Debug("speaking with espeak-ng")
	return e.run(ctx, e.binary, espeakArgs(u)...)
}

func espeakArgs(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	return []string{"-v", espeakVoice(u.Lang), "-s", strconv.Itoa(int(espeakBaseWPM * rate)), u.Text}
}

// espeak-ng names voices by bare language code.
func espeakVoice(lang string) string {
	if lang == "" {
		lang = DefaultLang
	}
	code, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(code)
}
