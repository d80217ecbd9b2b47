package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/easytalk/internal/dictionary"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/style"
)

const (
	sparkChars = " .:-=+*#%@"

	// HistoryPreview is how many entries the history view lists.
	HistoryPreview = 10
	// PreviewRunes is where history text is cut.
	PreviewRunes = 30

	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Options controls text output.
type Options struct {
	Color bool
}

func (o Options) heading(s string) string {
	if !o.Color {
		return s
	}
	return ansiBold + s + ansiReset
}

// RenderUsage prints the usage counters.
func RenderUsage(w io.Writer, stats model.UsageStats, opts Options) error {
	if _, err := fmt.Fprintln(w, opts.heading("사용 통계")); err != nil {
		return err
	}
	rows := [][]string{
		{"오늘 찾은 어려운 말", fmt.Sprintf("%d", stats.TodayDetected)},
		{"자동 변환", fmt.Sprintf("%d", stats.AutoConverted)},
		{"전체 변환", fmt.Sprintf("%d", stats.TotalConversions)},
		{"정확도", fmt.Sprintf("%.0f%%", stats.Accuracy)},
	}
	return writeLines(w, formatTable(nil, rows, map[int]bool{1: true}))
}

// RenderHistory prints the newest entries, each text cut to PreviewRunes.
func RenderHistory(w io.Writer, history []model.HistoryEntry, opts Options) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "변환 기록이 없습니다.")
		return err
	}
	if _, err := fmt.Fprintln(w, opts.heading(fmt.Sprintf("최근 변환 (%d/%d)", min(len(history), HistoryPreview), len(history)))); err != nil {
		return err
	}
	shown := history
	if len(shown) > HistoryPreview {
		shown = shown[:HistoryPreview]
	}
	headers := []string{"시간", "사용자", "말투", "원문", "변환"}
	rows := make([][]string, 0, len(shown))
	for _, e := range shown {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("01-02 15:04"),
			e.User,
			styleLabel(e.Style),
			Truncate(e.Original, PreviewRunes),
			Truncate(e.Converted, PreviewRunes),
		})
	}
	return writeLines(w, formatTable(headers, rows, nil))
}

func styleLabel(s model.SpeechStyle) string {
	switch s {
	case model.StylePolite:
		return "존댓말"
	case model.StyleCasual:
		return "반말"
	default:
		return string(s)
	}
}

// RenderResult prints a conversion result with its detected words.
func RenderResult(w io.Writer, original string, res model.ConversionResult, opts Options) error {
	lines := []string{
		opts.heading("원문") + ": " + original,
		opts.heading("쉬운 말") + ": " + res.ConvertedText,
		fmt.Sprintf("모델: %s  말투: %s", res.Source.ModelID(), style.Name(res.Style)),
	}
	if len(res.Replacements) > 0 {
		parts := make([]string, 0, len(res.Replacements))
		for _, r := range res.Replacements {
			parts = append(parts, r.Original+" → "+r.Simple)
		}
		lines = append(lines, "찾은 어려운 말: "+strings.Join(parts, ", "))
	}
	return writeLines(w, lines)
}

// RenderEntry prints a dictionary entry.
func RenderEntry(w io.Writer, e dictionary.Entry, opts Options) error {
	return writeLines(w, []string{
		opts.heading(e.Word) + " " + e.Pronunciation,
		"뜻: " + e.Meaning,
		fmt.Sprintf("예문: %q", e.Example),
		"쉬운 말: " + e.EasyForm,
	})
}

// DailyCounts counts entries per calendar day for the days ending at now,
// oldest first.
func DailyCounts(history []model.HistoryEntry, now time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	counts := make([]float64, days)
	y, m, d := now.Local().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	for _, e := range history {
		ey, em, ed := e.Timestamp.Local().Date()
		day := time.Date(ey, em, ed, 0, 0, 0, 0, time.Local)
		ago := int(math.Round(today.Sub(day).Hours() / 24))
		if ago < 0 || ago >= days {
			continue
		}
		counts[days-1-ago]++
	}
	return counts
}

// RenderActivity prints a sparkline of conversions per day.
func RenderActivity(w io.Writer, history []model.HistoryEntry, now time.Time, days int) error {
	counts := DailyCounts(history, now, days)
	if len(counts) == 0 {
		return nil
	}
	var total float64
	for _, c := range counts {
		total += c
	}
	_, err := fmt.Fprintf(w, "최근 %d일 [%s] %d건\n", days, Sparkline(counts), int(total))
	return err
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
