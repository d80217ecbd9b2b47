package app

import (
	"context"

	"github.com/verte-zerg/easytalk/internal/auth"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/store"
	"github.com/verte-zerg/easytalk/internal/style"
)

// keyPreviewLength is how much of the API key diagnostics reveal.
const keyPreviewLength = 10

// DebugInfo is a diagnostic snapshot of a session.
type DebugInfo struct {
	User        string
	Style       model.SpeechStyle
	StyleName   string
	APIKey      string
	StoredStyle string
	Stats       model.UsageStats
	History     int
	State       model.ConversionState
}

// Debug collects diagnostics. The API key is masked.
func (s *Service) Debug(ctx context.Context, sess *model.Session) (DebugInfo, Alert, error) {
	if alert, err := s.authorize(sess, auth.ExportSystemData); err != nil {
		return DebugInfo{}, alert, err
	}
	d := DebugInfo{
		User:        sess.User,
		Style:       sess.Style,
		StyleName:   style.Name(sess.Style),
		APIKey:      MaskKey(s.apiKey),
		StoredStyle: "없음",
		Stats:       sess.Stats,
		History:     len(sess.History),
		State:       sess.State,
	}
	if s.repo != nil {
		if v, ok, err := s.repo.GetSetting(ctx, store.KeySpeechStyle); err == nil && ok {
			d.StoredStyle = v
		}
	}
	s.logger.WithField("user", sess.User).Debug("diagnostics collected")
	return d, info("디버그 정보가 출력되었습니다."), nil
}

// MaskKey keeps only the first characters of key.
func MaskKey(key string) string {
	if key == "" {
		return "없음"
	}
	if len(key) <= keyPreviewLength {
		return key + "..."
	}
	return key[:keyPreviewLength] + "..."
}

// MaskedAPIKey returns the active model key masked.
func (s *Service) MaskedAPIKey() string {
	return MaskKey(s.apiKey)
}
