// Package app exposes every user operation behind one authorization check.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/easytalk/internal/auth"
	"github.com/verte-zerg/easytalk/internal/convert"
	"github.com/verte-zerg/easytalk/internal/dictionary"
	"github.com/verte-zerg/easytalk/internal/export"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/remote"
	"github.com/verte-zerg/easytalk/internal/speech"
	"github.com/verte-zerg/easytalk/internal/store"
	"github.com/verte-zerg/easytalk/internal/style"
)

// ResetConfirmation must be typed to wipe all data.
const ResetConfirmation = "삭제"

// ErrResetCancelled is returned when the confirmation does not match.
var ErrResetCancelled = errors.New("reset cancelled")

// Remote is the model client as seen by the service.
type Remote interface {
	convert.Rewriter
	SetAPIKey(key string)
	HasAPIKey() bool
	Ping(ctx context.Context, key string) error
}

// Options configures a Service.
type Options struct {
	Logger       *logrus.Logger
	Speaker      speech.Speaker
	// SpeechRate overrides speech.DefaultRate when positive.
	SpeechRate   float64
	HistoryLimit int
	// DefaultStyle applies when no style has been stored.
	DefaultStyle model.SpeechStyle
	// ConfigAPIKey is restored by ResetAPIKey.
	ConfigAPIKey string
	ExportDir    string
	OnBusy       func(bool)
	Now          func() time.Time
}

// Service runs user operations against a session.
type Service struct {
	remote       Remote
	repo         convert.Repository
	orch         *convert.Orchestrator
	speaker      speech.Speaker
	speechRate   float64
	logger       *logrus.Logger
	historyLimit int
	defaultStyle model.SpeechStyle
	configKey    string
	apiKey       string
	exportDir    string
	now          func() time.Time
}

// New wires a Service.
func New(rm Remote, repo convert.Repository, opts Options) *Service {
	s := &Service{
		remote:       rm,
		repo:         repo,
		speaker:      opts.Speaker,
		speechRate:   opts.SpeechRate,
		logger:       opts.Logger,
		historyLimit: opts.HistoryLimit,
		defaultStyle: opts.DefaultStyle,
		configKey:    opts.ConfigAPIKey,
		apiKey:       opts.ConfigAPIKey,
		exportDir:    opts.ExportDir,
		now:          opts.Now,
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}
	if s.speaker == nil {
		s.speaker = speech.Silent{}
	}
	if s.historyLimit <= 0 {
		s.historyLimit = model.HistoryLimit
	}
	if !s.defaultStyle.Valid() {
		s.defaultStyle = model.DefaultStyle
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.orch = convert.New(rm, repo, convert.Options{
		Logger:       s.logger,
		HistoryLimit: s.historyLimit,
		OnBusy:       opts.OnBusy,
		Now:          s.now,
	})
	return s
}

var deniedMessages = map[auth.Capability]string{
	auth.ChangeStyle:      "관리자만 말투를 변경할 수 있습니다.",
	auth.ManageDictionary: "관리자만 사전 단어를 추가할 수 있습니다.",
	auth.ExportSystemData: "관리자만 시스템 데이터를 내보낼 수 있습니다.",
	auth.ClearHistory:     "관리자만 히스토리를 삭제할 수 있습니다.",
}

// authorize is the only permission check in the application.
func (s *Service) authorize(sess *model.Session, c auth.Capability) (Alert, error) {
	if err := auth.Require(sess, c); err != nil {
		s.logger.WithError(err).Warn("permission denied")
		return warning(deniedMessages[c]), err
	}
	return Alert{}, nil
}

// Check reports whether sess may use c. The alert is set when it may not.
func (s *Service) Check(sess *model.Session, c auth.Capability) (Alert, bool) {
	alert, err := s.authorize(sess, c)
	return alert, err == nil
}

// Login checks credentials and hydrates a session from storage.
func (s *Service) Login(ctx context.Context, id, password string) (*model.Session, Alert, error) {
	role, err := auth.Authenticate(id, password)
	if err != nil {
		s.logger.WithField("user", id).Info("login rejected")
		return nil, failure("로그인 정보가 잘못되었습니다."), err
	}
	sess := &model.Session{
		User:         auth.DisplayName(role),
		Role:         role,
		Capabilities: auth.CapabilitiesFor(role),
		Style:        s.defaultStyle,
		State:        model.StateIdle,
		Stats:        model.NewUsageStats(),
	}
	s.hydrate(ctx, sess)
	s.logger.WithFields(logrus.Fields{"user": sess.User, "role": role}).Info("logged in")

	if role == model.RoleAdmin {
		return sess, success("관리자 로그인 성공!"), nil
	}
	return sess, success("게스트로 로그인했습니다!"), nil
}

// Stored data that fails to load is logged and replaced by defaults.
func (s *Service) hydrate(ctx context.Context, sess *model.Session) {
	if s.repo == nil {
		return
	}
	if stats, err := s.repo.LoadStats(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to load usage stats")
	} else {
		sess.Stats = stats
	}
	if history, err := s.repo.ListHistory(ctx, s.historyLimit); err != nil {
		s.logger.WithError(err).Warn("failed to load history")
	} else {
		sess.History = history
	}
	if value, ok, err := s.repo.GetSetting(ctx, store.KeySpeechStyle); err != nil {
		s.logger.WithError(err).Warn("failed to load speech style")
	} else if ok {
		if parsed, perr := model.ParseStyle(value); perr == nil {
			sess.Style = parsed
		}
	}
	if key, ok, err := s.repo.GetSetting(ctx, store.KeyAPIKey); err != nil {
		s.logger.WithError(err).Warn("failed to load stored API key")
	} else if ok && key != "" {
		s.useKey(key)
	}
}

// NeedsAPIKey reports whether no model key is configured.
func (s *Service) NeedsAPIKey() bool {
	return !s.remote.HasAPIKey()
}

// Logout ends the session.
func (s *Service) Logout(sess *model.Session) Alert {
	if sess != nil {
		s.logger.WithField("user", sess.User).Info("logged out")
	}
	return info("로그아웃되었습니다.")
}

// Convert rewrites text and speaks the result in the background.
func (s *Service) Convert(ctx context.Context, sess *model.Session, text string) (convert.Outcome, Alert, error) {
	out, err := s.orch.Convert(ctx, sess, text)
	switch {
	case errors.Is(err, convert.ErrEmptyInput):
		return out, warning("변환할 텍스트를 입력해주세요."), err
	case err != nil:
		return out, failure("변환 오류: " + err.Error()), err
	}
	speech.Go(context.WithoutCancel(ctx), s.speaker, s.utterance(out.Result.ConvertedText), s.logger)
	if out.Warning != "" {
		return out, warning(out.Warning), nil
	}
	return out, success(SuccessMessage(sess, out.Result)), nil
}

// SuccessMessage is the alert text for a finished conversion. Admins also
// see the style that was used.
func SuccessMessage(sess *model.Session, res model.ConversionResult) string {
	msg := fmt.Sprintf("변환 완료! (%s)", res.Source.ModelID())
	if sess.IsAdmin() && res.Style.Valid() {
		msg += fmt.Sprintf(" [%s]", style.Name(res.Style))
	}
	return msg
}

// Speak reads the current result aloud again.
func (s *Service) Speak(ctx context.Context, sess *model.Session) error {
	if sess.Current == nil {
		return errors.New("nothing to speak")
	}
	return s.speaker.Speak(ctx, s.utterance(sess.Current.Result.ConvertedText))
}

// ChangeStyle sets and stores the speech style.
func (s *Service) ChangeStyle(ctx context.Context, sess *model.Session, st model.SpeechStyle) (Alert, error) {
	if alert, err := s.authorize(sess, auth.ChangeStyle); err != nil {
		return alert, err
	}
	if !st.Valid() {
		err := fmt.Errorf("unknown speech style %q", st)
		return failure(err.Error()), err
	}
	sess.Style = st
	if s.repo != nil {
		if err := s.repo.SetSetting(ctx, store.KeySpeechStyle, string(st)); err != nil {
			s.logger.WithError(err).Warn("failed to persist speech style")
		}
	}
	s.logger.WithFields(logrus.Fields{"user": sess.User, "style": st}).Info("speech style changed")
	return success(fmt.Sprintf("말투가 \"%s\"으로 변경되었습니다.", style.Name(st))), nil
}

// ClearHistory deletes every history entry.
func (s *Service) ClearHistory(ctx context.Context, sess *model.Session) (Alert, error) {
	if alert, err := s.authorize(sess, auth.ClearHistory); err != nil {
		return alert, err
	}
	sess.History = nil
	if s.repo != nil {
		if err := s.repo.ClearHistory(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to clear stored history")
		}
	}
	return success("히스토리가 모두 삭제되었습니다."), nil
}

// ResetAll wipes stats, history and the stored style once the typed
// confirmation matches ResetConfirmation. The API key is kept.
func (s *Service) ResetAll(ctx context.Context, sess *model.Session, confirmation string) (Alert, error) {
	if confirmation != ResetConfirmation {
		return info("삭제가 취소되었습니다."), ErrResetCancelled
	}
	sess.Stats = model.NewUsageStats()
	sess.History = nil
	sess.Current = nil
	sess.Style = model.DefaultStyle
	if s.repo != nil {
		if err := s.repo.ResetStats(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to reset stored stats")
		}
		if err := s.repo.ClearHistory(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to clear stored history")
		}
		if err := s.repo.DeleteSetting(ctx, store.KeySpeechStyle); err != nil {
			s.logger.WithError(err).Warn("failed to delete stored speech style")
		}
	}
	s.logger.WithField("user", sess.User).Info("all data reset")
	return success("모든 데이터가 완전히 삭제되었습니다."), nil
}

// Export writes a backup of the session and returns its path.
func (s *Service) Export(sess *model.Session) (string, Alert, error) {
	if alert, err := s.authorize(sess, auth.ExportSystemData); err != nil {
		return "", alert, err
	}
	path, err := export.WriteFile(s.exportDir, export.Build(sess, s.now()))
	if err != nil {
		return "", failure("백업 실패: " + err.Error()), err
	}
	s.logger.WithField("file", path).Info("backup written")
	return path, success("데이터가 성공적으로 백업되었습니다!"), nil
}

// LookupWord searches the built-in dictionary.
func (s *Service) LookupWord(word string) (dictionary.Entry, Alert, error) {
	entry, err := dictionary.Lookup(word)
	switch {
	case errors.Is(err, dictionary.ErrEmptyWord):
		return entry, warning("검색할 단어를 입력해주세요."), err
	case err != nil:
		return entry, warning(fmt.Sprintf("\"%s\"을 사전에서 찾을 수 없습니다.", word)), err
	}
	return entry, success(fmt.Sprintf("\"%s\"의 뜻을 찾았습니다!", entry.Word)), nil
}

// ProposeWord records a request to add a dictionary word. The request is
// only logged.
func (s *Service) ProposeWord(sess *model.Session, word, meaning, example, easyForm string) (Alert, error) {
	if alert, err := s.authorize(sess, auth.ManageDictionary); err != nil {
		return alert, err
	}
	p, err := dictionary.NewProposal(word, meaning, example, easyForm)
	if err != nil {
		return warning("단어 정보를 모두 입력해주세요."), err
	}
	s.logger.WithFields(logrus.Fields{
		"word":          p.Word,
		"meaning":       p.Meaning,
		"pronunciation": p.Pronunciation,
		"example":       p.Example,
		"easy":          p.EasyForm,
	}).Info("dictionary word proposed")
	return info(fmt.Sprintf("\"%s\" 단어가 추가 요청되었습니다. (개발자가 수동으로 추가해야 합니다)", p.Word)), nil
}

// SetAPIKey validates key, tests it against the endpoint and stores it.
func (s *Service) SetAPIKey(ctx context.Context, key string) (Alert, error) {
	if err := remote.ValidateAPIKey(key); err != nil {
		return failure("API 키 오류: " + err.Error()), err
	}
	if err := s.remote.Ping(ctx, key); err != nil {
		return failure("API 키 테스트 실패: " + err.Error()), err
	}
	if s.repo != nil {
		if err := s.repo.SetSetting(ctx, store.KeyAPIKey, key); err != nil {
			return failure("API 키 저장 실패: " + err.Error()), err
		}
	}
	s.useKey(key)
	s.logger.Info("API key stored")
	return success("API 키가 성공적으로 설정되었습니다!"), nil
}

// ResetAPIKey forgets the stored key and falls back to the configured one.
func (s *Service) ResetAPIKey(ctx context.Context) (Alert, error) {
	if s.repo != nil {
		if err := s.repo.DeleteSetting(ctx, store.KeyAPIKey); err != nil {
			return failure(err.Error()), err
		}
	}
	s.useKey(s.configKey)
	return info("API 키가 초기화되었습니다."), nil
}

func (s *Service) utterance(text string) speech.Utterance {
	u := speech.NewUtterance(text)
	if s.speechRate > 0 {
		u.Rate = s.speechRate
	}
	return u
}

func (s *Service) useKey(key string) {
	s.apiKey = key
	s.remote.SetAPIKey(key)
}
