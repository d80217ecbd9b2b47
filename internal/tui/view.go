package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/easytalk/internal/app"
	"github.com/verte-zerg/easytalk/internal/dictionary"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/stats"
	"github.com/verte-zerg/easytalk/internal/style"
)

const activityDays = 7

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.screen == screenLogin {
		return m.renderLogin()
	}
	if m.modal != nil {
		box := m.modal.view(m.width)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderLogin() string {
	lines := []string{titleStyle.Render("EASY TALK"), mutedStyle.Render("어려운 말을 쉬운 말로"), ""}
	for _, input := range m.loginInputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, "", footerStyle.Render("tab: 다음 칸  enter: 로그인  ctrl+c: 종료"))
	if alert := m.renderAlert(); alert != "" {
		lines = append(lines, alert)
	}
	box := modalStyle.Width(modalWidth(m.width) - 2).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + m.renderStatus()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderStatus() string {
	if m.sess == nil {
		return ""
	}
	role := "게스트"
	if m.sess.IsAdmin() {
		role = "관리자"
	}
	status := fmt.Sprintf("%s (%s) · 말투: %s", m.sess.User, role, style.Name(m.sess.Style))
	if m.svc.NeedsAPIKey() {
		status += " · API 키 없음 (백업 변환기 사용)"
	}
	return labelStyle.Render(truncateLine(status, m.width))
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabConvert:
		return m.renderConvert()
	case tabHistory:
		if len(m.sess.History) == 0 {
			return mutedStyle.Render("변환 기록이 없습니다.")
		}
		return m.history.View()
	case tabStats:
		return m.statsView.View()
	case tabDictionary:
		return m.renderDictionary()
	}
	return ""
}

func (m *Model) renderConvert() string {
	out := m.editor.View()
	switch {
	case m.busy:
		out += "\n\n" + m.spinner.View() + " " + mutedStyle.Render("쉬운 말로 바꾸는 중...")
	case m.sess.Current != nil:
		out += "\n\n" + renderResult(m.sess.Current, maxInt(10, m.width-2))
	}
	return out
}

func renderResult(cur *model.CurrentResult, width int) string {
	res := cur.Result
	lines := []string{
		labelStyle.Render("원문"),
		wrapPlain(cur.Original, width, mutedStyle),
		"",
		labelStyle.Render("쉬운 말"),
		wrapStyledRunes(buildStyledRunes(res.ConvertedText, res.Replacements), width),
		"",
	}
	if len(res.Replacements) > 0 {
		pairs := make([]string, 0, len(res.Replacements))
		for _, r := range res.Replacements {
			pairs = append(pairs, r.Original+" → "+highlightStyle.Render(r.Simple))
		}
		lines = append(lines, "찾은 어려운 말: "+strings.Join(pairs, ", "))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("모델: %s  말투: %s", res.Source.ModelID(), style.Name(res.Style))))
	return strings.Join(lines, "\n")
}

func (m *Model) renderDictionary() string {
	lines := []string{m.dictInput.View(), ""}
	if m.dictEntry != nil {
		var buf bytes.Buffer
		if err := stats.RenderEntry(&buf, *m.dictEntry, stats.Options{}); err != nil {
			lines = append(lines, err.Error())
		} else {
			lines = append(lines, strings.TrimRight(buf.String(), "\n"))
		}
	} else {
		lines = append(lines, mutedStyle.Render("찾을 수 있는 단어: "+strings.Join(dictionary.Words(), ", ")))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) statsContent() string {
	st := m.sess.Stats
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("오늘 찾은 어려운 말", fmt.Sprintf("%d", st.TodayDetected)),
		metricCard("자동 변환", fmt.Sprintf("%d", st.AutoConverted)),
		metricCard("전체 변환", fmt.Sprintf("%d", st.TotalConversions)),
		metricCard("정확도", fmt.Sprintf("%.0f%%", st.Accuracy)),
	)
	var buf bytes.Buffer
	if err := stats.RenderActivity(&buf, m.sess.History, m.now(), activityDays); err != nil {
		buf.Reset()
		buf.WriteString(err.Error())
	}
	parts := []string{cards, strings.TrimRight(buf.String(), "\n")}
	if m.debug != nil {
		parts = append(parts, renderDebug(*m.debug))
	}
	return strings.Join(parts, "\n\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderDebug(d app.DebugInfo) string {
	return strings.Join([]string{
		labelStyle.Render("디버그 정보"),
		fmt.Sprintf("사용자: %s", d.User),
		fmt.Sprintf("말투: %s (%s)", d.Style, d.StyleName),
		fmt.Sprintf("저장된 말투: %s", d.StoredStyle),
		fmt.Sprintf("API 키: %s", d.APIKey),
		fmt.Sprintf("히스토리: %d개", d.History),
		fmt.Sprintf("상태: %s", d.State),
	}, "\n")
}

func historyColumns(width int) []table.Column {
	textWidth := maxInt(10, (width-24)/2)
	return []table.Column{
		{Title: "시간", Width: 11},
		{Title: "사용자", Width: 9},
		{Title: "원문", Width: textWidth},
		{Title: "변환", Width: textWidth},
	}
}

func historyRows(history []model.HistoryEntry) []table.Row {
	shown := history
	if len(shown) > stats.HistoryPreview {
		shown = shown[:stats.HistoryPreview]
	}
	rows := make([]table.Row, 0, len(shown))
	for _, e := range shown {
		rows = append(rows, table.Row{
			e.Timestamp.Local().Format("01-02 15:04"),
			e.User,
			stats.Truncate(e.Original, stats.PreviewRunes),
			stats.Truncate(e.Converted, stats.PreviewRunes),
		})
	}
	return rows
}

func (m *Model) renderFooter() string {
	lines := []string{m.renderSummary(), m.renderHelp()}
	if alert := m.renderAlert(); alert != "" {
		lines = append(lines, alert)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSummary() string {
	if m.sess == nil {
		return ""
	}
	st := m.sess.Stats
	segments := []string{
		fmt.Sprintf("전체 %d", st.TotalConversions),
		fmt.Sprintf("자동 %d", st.AutoConverted),
		fmt.Sprintf("오늘 찾은 말 %d", st.TodayDetected),
		fmt.Sprintf("정확도 %.0f%%", st.Accuracy),
		fmt.Sprintf("기록 %d/%d", len(m.sess.History), model.HistoryLimit),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) renderHelp() string {
	var help string
	switch m.activeTab {
	case tabConvert:
		help = "ctrl+s: 변환  ctrl+r: 다시 듣기  esc: 지우기"
	case tabHistory:
		help = "↑/↓: 이동  c: 기록 삭제"
	case tabStats:
		help = "↑/↓: 스크롤  i: 디버그 정보"
	case tabDictionary:
		help = "enter: 찾기  ctrl+y: 단어 추가 요청"
	}
	help += "  tab: 탭 이동  ctrl+t: 말투  ctrl+o: 백업  ctrl+g: API 키  ctrl+x: 전체 삭제  ctrl+l: 로그아웃  ctrl+c: 종료"
	return footerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderAlert() string {
	if m.alert == nil {
		return ""
	}
	st, ok := alertStyles[m.alert.Level]
	if !ok {
		st = footerStyle
	}
	return st.Render(m.alert.Message)
}
