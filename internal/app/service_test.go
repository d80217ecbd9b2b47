package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/easytalk/internal/auth"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/remote"
	"github.com/verte-zerg/easytalk/internal/store"
)

const (
	configKey = "AIzaSyConfigKeyThatIsLongEnough000000"
	storedKey = "AIzaSyStoredKeyThatIsLongEnough000000"
)

type fakeRemote struct {
	key     string
	result  model.ConversionResult
	err     error
	pingErr error
	pinged  string
}

func (f *fakeRemote) Rewrite(_ context.Context, req model.ConversionRequest) (model.ConversionResult, error) {
	if f.err != nil {
		return model.ConversionResult{}, f.err
	}
	res := f.result
	res.Style = req.Style
	return res, nil
}

func (f *fakeRemote) SetAPIKey(key string) { f.key = key }
func (f *fakeRemote) HasAPIKey() bool      { return f.key != "" }

func (f *fakeRemote) Ping(_ context.Context, key string) error {
	f.pinged = key
	return f.pingErr
}

type fixture struct {
	svc    *Service
	remote *fakeRemote
	store  *store.Store
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "easytalk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	rm := &fakeRemote{
		key:    configKey,
		result: model.ConversionResult{ConvertedText: "서류를 내 주세요", Replacements: []model.Replacement{}, Source: model.SourceRemote},
	}
	svc := New(rm, st, Options{
		ConfigAPIKey: configKey,
		ExportDir:    filepath.Join(dir, "exports"),
		Now:          func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	return &fixture{svc: svc, remote: rm, store: st, dir: dir}
}

func (f *fixture) login(t *testing.T, id, password string) *model.Session {
	t.Helper()
	sess, _, err := f.svc.Login(context.Background(), id, password)
	if err != nil {
		t.Fatalf("login %s: %v", id, err)
	}
	return sess
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, alert, err := f.svc.Login(ctx, "EASY TALK", "1234")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if admin.Role != model.RoleAdmin || !admin.Capabilities.CanChangeStyle || alert.Message != "관리자 로그인 성공!" {
		t.Fatalf("unexpected admin session: %+v %+v", admin, alert)
	}

	guest, alert, err := f.svc.Login(ctx, "guest", "guest123")
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	if guest.Role != model.RoleGuest || guest.Capabilities != (model.Capabilities{}) || guest.User != "guest" {
		t.Fatalf("unexpected guest session: %+v", guest)
	}
	if alert.Level != LevelSuccess {
		t.Fatalf("expected success alert, got %v", alert.Level)
	}

	_, alert, err = f.svc.Login(ctx, "guest", "1234")
	if !errors.Is(err, auth.ErrInvalidCredentials) || alert.Level != LevelError {
		t.Fatalf("expected rejected login, got %v %+v", err, alert)
	}
}

func TestLoginHydratesFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := model.UsageStats{TotalConversions: 4, AutoConverted: 4, TodayDetected: 2, Accuracy: 100}
	if err := f.store.SaveStats(ctx, stats); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	if err := f.store.AppendHistory(ctx, model.HistoryEntry{ID: "x", Original: "확인", Converted: "알아보기", Timestamp: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.store.SetSetting(ctx, store.KeySpeechStyle, "casual"); err != nil {
		t.Fatalf("set style: %v", err)
	}
	if err := f.store.SetSetting(ctx, store.KeyAPIKey, storedKey); err != nil {
		t.Fatalf("set key: %v", err)
	}

	sess := f.login(t, "guest", "guest123")
	if sess.Stats != stats || len(sess.History) != 1 || sess.Style != model.StyleCasual {
		t.Fatalf("session not hydrated: %+v", sess)
	}
	if f.remote.key != storedKey {
		t.Fatalf("stored key should override config key, got %q", f.remote.key)
	}
}

func TestGuestIsDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.login(t, "guest", "guest123")

	var denied *auth.DeniedError
	alert, err := f.svc.ChangeStyle(ctx, sess, model.StyleCasual)
	if !errors.As(err, &denied) || alert.Message != "관리자만 말투를 변경할 수 있습니다." {
		t.Fatalf("change style: %v %+v", err, alert)
	}
	if sess.Style != model.StylePolite {
		t.Fatalf("style must not change")
	}
	if _, err := f.svc.ClearHistory(ctx, sess); !errors.As(err, &denied) {
		t.Fatalf("clear history: %v", err)
	}
	if _, _, err := f.svc.Export(sess); !errors.As(err, &denied) {
		t.Fatalf("export: %v", err)
	}
	if _, err := f.svc.ProposeWord(sess, "발급", "뜻", "예문", "만들어 주기"); !errors.As(err, &denied) {
		t.Fatalf("propose word: %v", err)
	}
	if _, _, err := f.svc.Debug(ctx, sess); !errors.As(err, &denied) {
		t.Fatalf("debug: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "exports")); !os.IsNotExist(err) {
		t.Fatalf("denied export must not write files")
	}
}

func TestConvertAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.login(t, "EASY TALK", "1234")
	out, alert, err := f.svc.Convert(ctx, admin, "서류 제출 바랍니다")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.State != model.StateSuccess {
		t.Fatalf("expected success, got %s", out.State)
	}
	if alert.Message != "변환 완료! (gemini-2.0-flash-exp) [존댓말 (~요, ~해주세요)]" {
		t.Fatalf("unexpected admin alert: %q", alert.Message)
	}

	guest := f.login(t, "guest", "guest123")
	_, alert, _ = f.svc.Convert(ctx, guest, "서류 제출 바랍니다")
	if alert.Message != "변환 완료! (gemini-2.0-flash-exp)" {
		t.Fatalf("unexpected guest alert: %q", alert.Message)
	}

	_, alert, err = f.svc.Convert(ctx, guest, "  ")
	if err == nil || alert.Level != LevelWarning {
		t.Fatalf("expected empty input warning, got %v %+v", err, alert)
	}

	f.remote.err = &remote.APIError{Status: 503, Message: "overloaded"}
	out, alert, err = f.svc.Convert(ctx, guest, "확인 바랍니다")
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if out.State != model.StateFallback || alert.Level != LevelWarning || alert.Message != "백업 변환기로 변환되었습니다." {
		t.Fatalf("unexpected fallback outcome: %+v %+v", out, alert)
	}

	history, err := f.store.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 3 || history[0].Converted != "알아보기 주세요" {
		t.Fatalf("unexpected stored history: %+v", history)
	}
}

func TestChangeStylePersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.login(t, "EASY TALK", "1234")

	alert, err := f.svc.ChangeStyle(ctx, admin, model.StyleCasual)
	if err != nil {
		t.Fatalf("change style: %v", err)
	}
	if alert.Message != `말투가 "반말 (~다, ~야, ~해)"으로 변경되었습니다.` {
		t.Fatalf("unexpected alert: %q", alert.Message)
	}
	value, ok, err := f.store.GetSetting(ctx, store.KeySpeechStyle)
	if err != nil || !ok || value != "casual" {
		t.Fatalf("style not stored: %q %v %v", value, ok, err)
	}
	if _, err := f.svc.ChangeStyle(ctx, admin, model.SpeechStyle("formal")); err == nil {
		t.Fatalf("unknown style should fail")
	}
}

func TestResetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.login(t, "EASY TALK", "1234")
	if _, _, err := f.svc.Convert(ctx, admin, "확인"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := f.svc.ChangeStyle(ctx, admin, model.StyleCasual); err != nil {
		t.Fatalf("style: %v", err)
	}

	alert, err := f.svc.ResetAll(ctx, admin, "delete")
	if !errors.Is(err, ErrResetCancelled) || alert.Message != "삭제가 취소되었습니다." {
		t.Fatalf("expected cancellation, got %v %+v", err, alert)
	}
	if admin.Stats.TotalConversions != 1 {
		t.Fatalf("cancelled reset must keep data")
	}

	if _, err := f.svc.ResetAll(ctx, admin, ResetConfirmation); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if admin.Stats != model.NewUsageStats() || len(admin.History) != 0 || admin.Style != model.StylePolite || admin.Current != nil {
		t.Fatalf("session not reset: %+v", admin)
	}
	stats, _ := f.store.LoadStats(ctx)
	history, _ := f.store.ListHistory(ctx, 0)
	_, styleStored, _ := f.store.GetSetting(ctx, store.KeySpeechStyle)
	if stats != model.NewUsageStats() || len(history) != 0 || styleStored {
		t.Fatalf("store not reset: %+v %d %v", stats, len(history), styleStored)
	}
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.login(t, "EASY TALK", "1234")
	if _, _, err := f.svc.Convert(ctx, admin, "확인"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := f.svc.ClearHistory(ctx, admin); err != nil {
		t.Fatalf("clear: %v", err)
	}
	history, _ := f.store.ListHistory(ctx, 0)
	if len(admin.History) != 0 || len(history) != 0 {
		t.Fatalf("history not cleared")
	}
	if admin.Stats.TotalConversions != 1 {
		t.Fatalf("clearing history keeps stats")
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, "EASY TALK", "1234")
	path, alert, err := f.svc.Export(admin)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(path) != "easytalk_backup_2026-05-01.json" || alert.Level != LevelSuccess {
		t.Fatalf("unexpected export: %s %+v", path, alert)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), `"version": "EasyTalk_Final_v1.0"`) {
		t.Fatalf("unexpected export:\n%s", data)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alert, err := f.svc.SetAPIKey(ctx, "short")
	var cfgErr *remote.ConfigError
	if !errors.As(err, &cfgErr) || !strings.HasPrefix(alert.Message, "API 키 오류: ") {
		t.Fatalf("expected format error, got %v %+v", err, alert)
	}
	if f.remote.pinged != "" {
		t.Fatalf("malformed key must not be tested")
	}

	f.remote.pingErr = &remote.APIError{Status: 400, Message: "API key not valid"}
	alert, err = f.svc.SetAPIKey(ctx, storedKey)
	if err == nil || !strings.HasPrefix(alert.Message, "API 키 테스트 실패: ") {
		t.Fatalf("expected ping failure, got %v %+v", err, alert)
	}
	if _, ok, _ := f.store.GetSetting(ctx, store.KeyAPIKey); ok {
		t.Fatalf("failed key must not be stored")
	}

	f.remote.pingErr = nil
	if _, err := f.svc.SetAPIKey(ctx, storedKey); err != nil {
		t.Fatalf("set key: %v", err)
	}
	if v, ok, _ := f.store.GetSetting(ctx, store.KeyAPIKey); !ok || v != storedKey || f.remote.key != storedKey {
		t.Fatalf("key not applied: %q", v)
	}

	admin := f.login(t, "EASY TALK", "1234")
	info, _, err := f.svc.Debug(ctx, admin)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if info.APIKey != "AIzaSyStor..." {
		t.Fatalf("key should be masked, got %q", info.APIKey)
	}

	if _, err := f.svc.ResetAPIKey(ctx); err != nil {
		t.Fatalf("reset key: %v", err)
	}
	if f.remote.key != configKey {
		t.Fatalf("config key should be restored, got %q", f.remote.key)
	}
	if _, ok, _ := f.store.GetSetting(ctx, store.KeyAPIKey); ok {
		t.Fatalf("stored key should be deleted")
	}
}

func TestLookupWord(t *testing.T) {
	f := newFixture(t)
	entry, alert, err := f.svc.LookupWord("협조")
	if err != nil || entry.EasyForm != "도움" || alert.Message != `"협조"의 뜻을 찾았습니다!` {
		t.Fatalf("unexpected lookup: %+v %+v %v", entry, alert, err)
	}
	_, alert, err = f.svc.LookupWord("제출")
	if err == nil || alert.Level != LevelWarning {
		t.Fatalf("expected missing word warning, got %v %+v", err, alert)
	}
}

func TestProposeWord(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, "EASY TALK", "1234")
	alert, err := f.svc.ProposeWord(admin, "발급", "증명서를 만들어 줌", "여권을 발급받았어요.", "만들어 주기")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !strings.Contains(alert.Message, "수동으로 추가해야 합니다") {
		t.Fatalf("unexpected alert: %q", alert.Message)
	}
	if _, err := f.svc.ProposeWord(admin, "발급", "", "", ""); err == nil {
		t.Fatalf("incomplete proposal should fail")
	}
}

func TestMaskKey(t *testing.T) {
	cases := map[string]string{
		"":                     "없음",
		"AIzaShort":            "AIzaShort...",
		"AIzaSyABCDEFGHIJKLMN": "AIzaSyABCD...",
	}
	for in, want := range cases {
		if got := MaskKey(in); got != want {
			t.Fatalf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAlertDurations(t *testing.T) {
	if LevelInfo.Duration() != 3*time.Second || LevelSuccess.Duration() != 3*time.Second {
		t.Fatalf("info and success alerts last 3s")
	}
	if LevelWarning.Duration() != 4*time.Second || LevelError.Duration() != 5*time.Second {
		t.Fatalf("warning lasts 4s and error 5s")
	}
}
