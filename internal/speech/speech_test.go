package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewSelectsEngine(t *testing.T) {
	cases := []struct {
		engine string
		want   any
	}{
		{"", Silent{}},
		{"none", Silent{}},
		{"ESPEAK", &Espeak{}},
	}
	for _, tc := range cases {
		s, err := New(Config{Engine: tc.engine}, nil)
		if err != nil {
			t.Fatalf("engine %q: %v", tc.engine, err)
		}
		if reflect.TypeOf(s) != reflect.TypeOf(tc.want) {
			t.Fatalf("engine %q: got %T", tc.engine, s)
		}
	}
	if _, err := New(Config{Engine: "openai"}, nil); err == nil {
		t.Fatalf("openai without key should fail")
	}
	if _, err := New(Config{Engine: "festival"}, nil); err == nil {
		t.Fatalf("unknown engine should fail")
	}
}

func TestNewUtteranceDefaults(t *testing.T) {
	u := NewUtterance("알아봐 줘")
	if u.Lang != "ko-KR" || u.Rate != 0.8 {
		t.Fatalf("unexpected utterance: %+v", u)
	}
}

func TestEspeakArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	e := NewEspeak(discardLogger())
	e.run = func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}
	if err := e.Speak(context.Background(), NewUtterance("서류를 내 주세요")); err != nil {
		t.Fatalf("speak: %v", err)
	}
	want := []string{"-v", "ko", "-s", "140", "서류를 내 주세요"}
	if gotName != "espeak-ng" || !reflect.DeepEqual(gotArgs, want) {
		t.Fatalf("unexpected command: %s %v", gotName, gotArgs)
	}
}

func TestEspeakPropagatesFailure(t *testing.T) {
	e := &Espeak{binary: "espeak-ng", logger: discardLogger(), run: func(context.Context, string, ...string) error {
		return errors.New("not installed")
	}}
	if err := e.Speak(context.Background(), NewUtterance("확인")); err == nil {
		t.Fatalf("expected failure")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3fake")
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	var played []string
	o := NewOpenAI(Config{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1", AudioDir: dir, Voice: "nova", Player: "mpv --really-quiet"}, discardLogger())
	o.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	o.run = func(_ context.Context, name string, args ...string) error {
		played = append([]string{name}, args...)
		return nil
	}

	if err := o.Speak(context.Background(), NewUtterance("알아봐 줘")); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if got["input"] != "알아봐 줘" || got["voice"] != "nova" || got["speed"] != 0.8 {
		t.Fatalf("unexpected request: %v", got)
	}
	path := filepath.Join(dir, "easytalk-20260102-030405.000.mp3")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "ID3fake" {
		t.Fatalf("unexpected audio: %q", data)
	}
	want := []string{"mpv", "--really-quiet", path}
	if !reflect.DeepEqual(played, want) {
		t.Fatalf("unexpected player command: %v", played)
	}
}

func TestOpenAIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	o := NewOpenAI(Config{OpenAIKey: "sk-bad", OpenAIBaseURL: srv.URL + "/v1", AudioDir: t.TempDir()}, discardLogger())
	if _, err := o.Synthesize(context.Background(), NewUtterance("확인")); err == nil {
		t.Fatalf("expected error")
	}
}

type recordingSpeaker struct {
	done chan Utterance
}

func (r *recordingSpeaker) Speak(_ context.Context, u Utterance) error {
	r.done <- u
	return errors.New("device busy")
}

func TestGoRunsInBackground(t *testing.T) {
	rec := &recordingSpeaker{done: make(chan Utterance, 1)}
	Go(context.Background(), rec, NewUtterance("쉬운 말"), discardLogger())
	select {
	case u := <-rec.done:
		if u.Text != "쉬운 말" {
			t.Fatalf("unexpected utterance: %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("speaker was not called")
	}
}

func TestGoSkipsBlankText(t *testing.T) {
	rec := &recordingSpeaker{done: make(chan Utterance, 1)}
	Go(context.Background(), rec, NewUtterance("  "), discardLogger())
	select {
	case <-rec.done:
		t.Fatalf("blank text should not be spoken")
	case <-time.After(50 * time.Millisecond):
	}
}
