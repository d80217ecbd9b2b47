package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/verte-zerg/easytalk/internal/model"
)

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC))
	if got != "easytalk_backup_2026-03-07.json" {
		t.Fatalf("unexpected file name: %s", got)
	}
}

func TestWriteFileLayout(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC)
	sess := &model.Session{
		User:  "EASY TALK",
		Style: model.StyleCasual,
		Stats: model.UsageStats{TotalConversions: 2, AutoConverted: 2, TodayDetected: 3, Accuracy: 100},
		History: []model.HistoryEntry{
			{ID: "b", Original: "확인 바랍니다", Converted: "알아보기 줘", Timestamp: now, User: "EASY TALK", Style: model.StyleCasual, Source: model.SourceFallback},
			{ID: "a", Original: "접수 완료", Converted: "받기 끝내기", Timestamp: now.Add(-time.Minute), User: "EASY TALK", Style: model.StyleCasual, Source: model.SourceFallback},
		},
	}
	doc := Build(sess, now)
	sess.History[0].Converted = "changed later"

	path, err := WriteFile(t.TempDir(), doc)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "easytalk_backup_2026-03-07.json" {
		t.Fatalf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !gjson.ValidBytes(data) {
		t.Fatalf("backup is not valid JSON")
	}
	checks := map[string]string{
		"version":               Version,
		"user":                  "EASY TALK",
		"speechStyle":           "casual",
		"exportDate":            "2026-03-07T09:30:00Z",
		"aiStats.todayDetected": "3",
		"aiStats.accuracy":      "100",
		"aiHistory.#":           "2",
		"aiHistory.0.converted": "알아보기 줘",
		"aiHistory.1.id":        "a",
	}
	for path, want := range checks {
		if got := gjson.GetBytes(data, path).String(); got != want {
			t.Fatalf("%s: expected %q, got %q", path, want, got)
		}
	}
	if !bytes.Contains(data, []byte("\n  \"aiStats\"")) {
		t.Fatalf("expected indented output:\n%s", data)
	}
}

func TestEmptyHistoryEncodesAsArray(t *testing.T) {
	doc := Build(&model.Session{User: "guest", Style: model.StylePolite, Stats: model.NewUsageStats()}, time.Now())
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"aiHistory": []`) {
		t.Fatalf("expected empty array, got:\n%s", buf.String())
	}
}
