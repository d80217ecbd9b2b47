package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliEnv struct {
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EASYTALK_STYLE", "")
	t.Setenv(envUser, "")
	t.Setenv(envPassword, "")
	return &cliEnv{dir: dir}
}

func (e *cliEnv) configPath() string {
	return filepath.Join(e.dir, "config.toml")
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	base := []string{"--db", filepath.Join(e.dir, "easytalk.db"), "--config", e.configPath()}
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestConvertFallsBackWithoutKey(t *testing.T) {
	env := newCLIEnv(t)
	out, errOut, err := env.run(t, "convert", "확인", "바랍니다")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, "알아보기") || !strings.Contains(out, "backup-converter") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(errOut, "백업 변환기로 변환되었습니다.") {
		t.Fatalf("expected fallback notice, got:\n%s", errOut)
	}

	out, _, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "최근 변환 (1/1)") {
		t.Fatalf("expected one stored conversion:\n%s", out)
	}
}

func TestConvertReadsStdin(t *testing.T) {
	env := newCLIEnv(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("협조 부탁드립니다\n"))
	root.SetArgs([]string{"--db", filepath.Join(env.dir, "easytalk.db"), "--config", env.configPath(), "convert"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out.String(), "도움") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestStyleNeedsAdmin(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "style", "casual"); err == nil || !strings.Contains(err.Error(), "관리자만") {
		t.Fatalf("expected guest to be denied, got %v", err)
	}
	if _, _, err := env.run(t, "--user", "EASY TALK", "--password", "1234", "style", "casual"); err != nil {
		t.Fatalf("admin style change: %v", err)
	}
	out, _, err := env.run(t, "style")
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	if !strings.HasPrefix(out, "casual") {
		t.Fatalf("expected stored casual style, got %q", out)
	}
}

func TestConfigFileStyleAndFlagPrecedence(t *testing.T) {
	env := newCLIEnv(t)
	if err := os.WriteFile(env.configPath(), []byte("[session]\nstyle = \"casual\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, _, err := env.run(t, "style")
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	if !strings.HasPrefix(out, "casual") {
		t.Fatalf("expected config style, got %q", out)
	}
	out, _, err = env.run(t, "--style", "polite", "style")
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	if !strings.HasPrefix(out, "polite") {
		t.Fatalf("flag should override config, got %q", out)
	}
}

func TestUnknownConfigKeyFails(t *testing.T) {
	env := newCLIEnv(t)
	if err := os.WriteFile(env.configPath(), []byte("[session]\nmood = \"happy\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := env.run(t, "stats"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestResetNeedsConfirmationWord(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "convert", "확인 바랍니다"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	_, errOut, err := env.run(t, "reset", "--confirm", "네")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(errOut, "삭제가 취소되었습니다.") {
		t.Fatalf("expected cancellation notice, got %q", errOut)
	}
	if _, _, err := env.run(t, "reset", "--confirm", "삭제"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "변환 기록이 없습니다.") {
		t.Fatalf("expected empty history:\n%s", out)
	}
}

func TestExportWritesBackup(t *testing.T) {
	env := newCLIEnv(t)
	dir := filepath.Join(env.dir, "backups")
	if _, _, err := env.run(t, "export", "--dir", dir); err == nil {
		t.Fatalf("guest export should be denied")
	}
	out, _, err := env.run(t, "--user", "EASY TALK", "--password", "1234", "export", "--dir", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := strings.TrimSpace(out)
	if !strings.HasPrefix(filepath.Base(path), "easytalk_backup_") {
		t.Fatalf("unexpected backup path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
}

func TestDictLookup(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "dict", "협조")
	if err != nil {
		t.Fatalf("dict: %v", err)
	}
	if !strings.Contains(out, "쉬운 말: 도움") {
		t.Fatalf("unexpected entry:\n%s", out)
	}
	if _, _, err := env.run(t, "dict", "없는말"); err == nil {
		t.Fatalf("expected lookup miss")
	}
}

func TestKeyStatusWithoutKey(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "key", "status")
	if err != nil {
		t.Fatalf("key status: %v", err)
	}
	if strings.TrimSpace(out) != "없음" {
		t.Fatalf("expected no key, got %q", out)
	}
	if _, _, err := env.run(t, "key", "set", "short"); err == nil {
		t.Fatalf("expected invalid key to be rejected")
	}
}
