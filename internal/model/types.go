// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// HistoryLimit is the number of history entries kept, newest first.
const HistoryLimit = 30

// SpeechStyle is the target register of a rewrite.
type SpeechStyle string

// Supported speech styles.
const (
	StylePolite SpeechStyle = "polite"
	StyleCasual SpeechStyle = "casual"
)

// DefaultStyle is used when nothing has been selected yet.
const DefaultStyle = StylePolite

// ParseStyle converts user input into a SpeechStyle.
func ParseStyle(value string) (SpeechStyle, error) {
	switch SpeechStyle(strings.ToLower(strings.TrimSpace(value))) {
	case StylePolite:
		return StylePolite, nil
	case StyleCasual:
		return StyleCasual, nil
	default:
		return "", fmt.Errorf("unknown speech style %q (available: polite, casual)", value)
	}
}

// Valid reports whether s is a known style.
func (s SpeechStyle) Valid() bool {
	return s == StylePolite || s == StyleCasual
}

// Source tells which path produced a conversion result.
type Source string

// Conversion sources.
const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Model identifiers reported alongside a result.
const (
	RemoteModelID   = "gemini-2.0-flash-exp"
	FallbackModelID = "backup-converter"
)

// ModelID returns the identifier shown to users for the source.
func (s Source) ModelID() string {
	if s == SourceRemote {
		return RemoteModelID
	}
	return FallbackModelID
}

// ConversionRequest is a single rewrite request.
type ConversionRequest struct {
	OriginalText string
	Style        SpeechStyle
}

// Replacement records one difficult word and its simple form.
type Replacement struct {
	Original string `json:"original"`
	Simple   string `json:"simple"`
}

// ConversionResult is the outcome of a rewrite.
type ConversionResult struct {
	ConvertedText string
	Replacements  []Replacement
	Source        Source
	Style         SpeechStyle
}

// HistoryEntry is one stored conversion.
type HistoryEntry struct {
	ID        string      `json:"id"`
	Original  string      `json:"original"`
	Converted string      `json:"converted"`
	Timestamp time.Time   `json:"timestamp"`
	User      string      `json:"user"`
	Style     SpeechStyle `json:"speechStyle"`
	Source    Source      `json:"source"`
}

// UsageStats holds the conversion counters.
type UsageStats struct {
	TotalConversions int     `json:"totalConversions"`
	AutoConverted    int     `json:"autoConverted"`
	TodayDetected    int     `json:"todayDetected"`
	Accuracy         float64 `json:"accuracy"`
}

// NewUsageStats returns zeroed counters with full accuracy.
func NewUsageStats() UsageStats {
	return UsageStats{Accuracy: 100}
}

// Record counts one successful conversion with the given number of replacements.
func (u *UsageStats) Record(replacements int) {
	u.TotalConversions++
	u.AutoConverted++
	u.TodayDetected += replacements
}

// PrependHistory inserts entry at the front and drops everything past limit.
func PrependHistory(history []HistoryEntry, entry HistoryEntry, limit int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(history)+1)
	out = append(out, entry)
	out = append(out, history...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
