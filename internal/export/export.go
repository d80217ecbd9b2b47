// Package export writes session backups as JSON documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/easytalk/internal/model"
)

// Version tags every backup document.
const Version = "EasyTalk_Final_v1.0"

// Document is the backup layout. Field names match the files produced by
// earlier releases so old backups stay readable by other tools.
type Document struct {
	Stats      model.UsageStats     `json:"aiStats"`
	History    []model.HistoryEntry `json:"aiHistory"`
	Style      model.SpeechStyle    `json:"speechStyle"`
	ExportDate time.Time            `json:"exportDate"`
	Version    string               `json:"version"`
	User       string               `json:"user"`
}

// Build snapshots sess into a document stamped with now.
func Build(sess *model.Session, now time.Time) Document {
	history := make([]model.HistoryEntry, len(sess.History))
	copy(history, sess.History)
	return Document{
		Stats:      sess.Stats,
		History:    history,
		Style:      sess.Style,
		ExportDate: now.UTC(),
		Version:    Version,
		User:       sess.User,
	}
}

// FileName returns the backup file name for the given day.
func FileName(now time.Time) string {
	return "easytalk_backup_" + now.Format("2006-01-02") + ".json"
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// WriteFile writes doc into dir using FileName and returns the full path.
func WriteFile(dir string, doc Document) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(doc.ExportDate))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Encode(file, doc); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}
