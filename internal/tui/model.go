// Package tui provides the Bubble Tea interface for converting text.
package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/easytalk/internal/app"
	"github.com/verte-zerg/easytalk/internal/auth"
	"github.com/verte-zerg/easytalk/internal/convert"
	"github.com/verte-zerg/easytalk/internal/dictionary"
	"github.com/verte-zerg/easytalk/internal/model"
)

type screen int

const (
	screenLogin screen = iota
	screenMain
)

const (
	tabConvert = iota
	tabHistory
	tabStats
	tabDictionary
)

const editorHeight = 5

// Options configures the model.
type Options struct {
	Logger *logrus.Logger
	Now    func() time.Time
	// User and Password prefill the login form.
	User     string
	Password string
}

type convertDoneMsg struct {
	sess    *model.Session
	outcome convert.Outcome
	alert   app.Alert
	err     error
}

type apiKeyDoneMsg struct {
	alert app.Alert
	err   error
}

type speakDoneMsg struct {
	err error
}

type alertExpiredMsg struct {
	seq int
}

// Model implements the Bubble Tea converter UI.
type Model struct {
	ctx    context.Context
	svc    *app.Service
	logger *logrus.Logger
	now    func() time.Time

	width  int
	height int

	screen      screen
	sess        *model.Session
	loginInputs []textinput.Model
	loginFocus  int

	tabs      []string
	activeTab int
	editor    textarea.Model
	spinner   spinner.Model
	busy      bool
	history   table.Model
	statsView viewport.Model
	dictInput textinput.Model
	dictEntry *dictionary.Entry
	debug     *app.DebugInfo

	modal    *modal
	alert    *app.Alert
	alertSeq int
}

// NewModel constructs the converter UI on top of svc.
func NewModel(ctx context.Context, svc *app.Service, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Model{
		ctx:    ctx,
		svc:    svc,
		logger: opts.Logger,
		now:    opts.Now,
		tabs:   []string{"변환", "기록", "통계", "사전"},
	}
	m.loginInputs = []textinput.Model{
		newInput("아이디: ", "EASY TALK 또는 guest"),
		newInput("비밀번호: ", ""),
	}
	m.loginInputs[1].EchoMode = textinput.EchoPassword
	m.loginInputs[0].SetValue(opts.User)
	m.loginInputs[1].SetValue(opts.Password)
	m.loginInputs[0].Focus()

	m.editor = textarea.New()
	m.editor.Placeholder = "어려운 문장을 입력하세요"
	m.editor.ShowLineNumbers = false
	m.editor.SetHeight(editorHeight)

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = highlightStyle

	m.history = table.New(table.WithColumns(historyColumns(0)), table.WithHeight(1))
	m.history.SetStyles(historyTableStyles())
	m.statsView = viewport.New(0, 0)
	m.dictInput = newInput("단어: ", "확인, 협조, 신청")
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, svc *app.Service, opts Options) error {
	_, err := tea.NewProgram(NewModel(ctx, svc, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case alertExpiredMsg:
		if msg.seq == m.alertSeq {
			m.alert = nil
		}
		return m, nil
	case convertDoneMsg:
		return m, m.finishConvert(msg)
	case apiKeyDoneMsg:
		m.busy = false
		if msg.err == nil {
			return m, m.closeModal(msg.alert)
		}
		return m, m.showAlert(msg.alert)
	case speakDoneMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("speech failed")
		}
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m, m.updateLogin(msg)
		}
		if m.modal != nil {
			return m, m.updateModal(msg)
		}
		return m, m.updateMain(msg)
	}
	return m, m.updateFocused(msg)
}

// updateFocused forwards non-key messages such as cursor blinks.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.screen == screenLogin:
		m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	case m.modal != nil:
		cmd = m.modal.update(msg)
	case m.activeTab == tabConvert:
		m.editor, cmd = m.editor.Update(msg)
	case m.activeTab == tabDictionary:
		m.dictInput, cmd = m.dictInput.Update(msg)
	}
	return cmd
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		delta := 1
		if msg.String() == "shift+tab" || msg.String() == "up" {
			delta = -1
		}
		m.loginInputs[m.loginFocus].Blur()
		m.loginFocus = (m.loginFocus + delta + len(m.loginInputs)) % len(m.loginInputs)
		return m.loginInputs[m.loginFocus].Focus()
	case "enter":
		return m.login()
	}
	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return cmd
}

func (m *Model) login() tea.Cmd {
	sess, alert, err := m.svc.Login(m.ctx, m.loginInputs[0].Value(), m.loginInputs[1].Value())
	if err != nil {
		m.loginInputs[1].Reset()
		return m.showAlert(alert)
	}
	m.sess = sess
	m.screen = screenMain
	m.activeTab = tabConvert
	for i := range m.loginInputs {
		m.loginInputs[i].Blur()
	}
	m.refreshViews()
	cmds := []tea.Cmd{m.showAlert(alert), m.focusActive()}
	if m.svc.NeedsAPIKey() {
		cmds = append(cmds, m.openModal(newAPIKeyModal()))
	}
	return tea.Batch(cmds...)
}

func (m *Model) logout() tea.Cmd {
	alert := m.svc.Logout(m.sess)
	m.sess = nil
	m.screen = screenLogin
	m.modal = nil
	m.dictEntry = nil
	m.debug = nil
	m.editor.Reset()
	m.dictInput.Reset()
	m.loginInputs[1].Reset()
	m.loginFocus = 0
	m.editor.Blur()
	m.dictInput.Blur()
	return tea.Batch(m.showAlert(alert), m.loginInputs[0].Focus())
}

func (m *Model) updateMain(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		m.moveTab(1)
		return m.focusActive()
	case "shift+tab":
		m.moveTab(-1)
		return m.focusActive()
	}
	// Nothing else may touch the session while a request holds a copy of it.
	if m.busy {
		return nil
	}
	switch msg.String() {
	case "ctrl+l":
		return m.logout()
	case "ctrl+g":
		return m.openModal(newAPIKeyModal())
	case "ctrl+x":
		return m.openModal(newResetModal())
	case "ctrl+t":
		return m.toggleStyle()
	case "ctrl+o":
		return m.export()
	}

	switch m.activeTab {
	case tabConvert:
		return m.updateConvert(msg)
	case tabHistory:
		if msg.String() == "c" {
			alert, _ := m.svc.ClearHistory(m.ctx, m.sess)
			m.refreshViews()
			return m.showAlert(alert)
		}
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return cmd
	case tabStats:
		if msg.String() == "i" {
			return m.loadDebug()
		}
		var cmd tea.Cmd
		m.statsView, cmd = m.statsView.Update(msg)
		return cmd
	case tabDictionary:
		return m.updateDictionary(msg)
	}
	return nil
}

func (m *Model) updateConvert(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "ctrl+r":
		return m.speak()
	case "esc":
		if m.editor.Value() == "" {
			return nil
		}
		m.editor.Reset()
		return m.showAlert(app.Alert{Level: app.LevelInfo, Message: "입력이 지워졌습니다."})
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return cmd
}

func (m *Model) updateDictionary(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		entry, alert, err := m.svc.LookupWord(m.dictInput.Value())
		if err != nil {
			m.dictEntry = nil
		} else {
			m.dictEntry = &entry
		}
		return m.showAlert(alert)
	case "ctrl+y":
		if alert, ok := m.svc.Check(m.sess, auth.ManageDictionary); !ok {
			return m.showAlert(alert)
		}
		return m.openModal(newProposeModal())
	}
	var cmd tea.Cmd
	m.dictInput, cmd = m.dictInput.Update(msg)
	return cmd
}

// submit starts a conversion on a copy of the session so the update loop
// stays the only writer of m.sess.
func (m *Model) submit() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	return tea.Batch(m.spinner.Tick, m.convertCmd(cloneSession(m.sess), m.editor.Value()))
}

func (m *Model) convertCmd(work *model.Session, text string) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		out, alert, err := svc.Convert(ctx, work, text)
		return convertDoneMsg{sess: work, outcome: out, alert: alert, err: err}
	}
}

func (m *Model) finishConvert(msg convertDoneMsg) tea.Cmd {
	m.busy = false
	if m.sess != nil && msg.sess != nil {
		m.sess = msg.sess
	}
	if msg.err != nil {
		m.logger.WithError(msg.err).Debug("conversion did not finish")
	}
	m.refreshViews()
	return m.showAlert(msg.alert)
}

func (m *Model) speak() tea.Cmd {
	if m.sess == nil || m.sess.Current == nil {
		return nil
	}
	ctx, svc := m.ctx, m.svc
	sess := cloneSession(m.sess)
	return func() tea.Msg {
		return speakDoneMsg{err: svc.Speak(ctx, sess)}
	}
}

func (m *Model) toggleStyle() tea.Cmd {
	next := model.StyleCasual
	if m.sess.Style == model.StyleCasual {
		next = model.StylePolite
	}
	alert, _ := m.svc.ChangeStyle(m.ctx, m.sess, next)
	m.refreshViews()
	return m.showAlert(alert)
}

func (m *Model) export() tea.Cmd {
	path, alert, err := m.svc.Export(m.sess)
	if err == nil {
		alert.Message += " " + path
	}
	return m.showAlert(alert)
}

func (m *Model) loadDebug() tea.Cmd {
	info, alert, err := m.svc.Debug(m.ctx, m.sess)
	if err == nil {
		m.debug = &info
		m.refreshViews()
	}
	return m.showAlert(alert)
}

func (m *Model) openModal(d *modal) tea.Cmd {
	m.modal = d
	m.editor.Blur()
	m.dictInput.Blur()
	d.setWidth(m.width)
	return d.open()
}

func (m *Model) closeModal(alert app.Alert) tea.Cmd {
	m.modal = nil
	return tea.Batch(m.showAlert(alert), m.focusActive())
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	if m.busy {
		return nil
	}
	d := m.modal
	switch msg.String() {
	case "esc":
		return m.closeModal(cancelAlert(d.kind))
	case "tab", "down":
		return d.moveFocus(1)
	case "shift+tab", "up":
		return d.moveFocus(-1)
	case "enter":
		if !d.lastFocused() {
			return d.moveFocus(1)
		}
		return m.submitModal()
	}
	return d.update(msg)
}

func cancelAlert(kind modalKind) app.Alert {
	switch kind {
	case modalAPIKey:
		return app.Alert{Level: app.LevelWarning, Message: "API 키 입력이 취소되었습니다."}
	case modalReset:
		return app.Alert{Level: app.LevelInfo, Message: "삭제가 취소되었습니다."}
	default:
		return app.Alert{}
	}
}

func (m *Model) submitModal() tea.Cmd {
	d := m.modal
	values := d.values()
	switch d.kind {
	case modalAPIKey:
		if values[0] == "" {
			alert, _ := m.svc.ResetAPIKey(m.ctx)
			return m.closeModal(alert)
		}
		m.busy = true
		ctx, svc, key := m.ctx, m.svc, values[0]
		return func() tea.Msg {
			alert, err := svc.SetAPIKey(ctx, key)
			return apiKeyDoneMsg{alert: alert, err: err}
		}
	case modalReset:
		alert, err := m.svc.ResetAll(m.ctx, m.sess, values[0])
		if err == nil {
			m.dictEntry = nil
			m.debug = nil
			m.editor.Reset()
		}
		m.refreshViews()
		return m.closeModal(alert)
	case modalPropose:
		alert, err := m.svc.ProposeWord(m.sess, values[0], values[1], values[2], values[3])
		if err != nil {
			return m.showAlert(alert)
		}
		return m.closeModal(alert)
	}
	return nil
}

// showAlert displays a until its level's duration passes. A newer alert
// replaces it.
func (m *Model) showAlert(a app.Alert) tea.Cmd {
	if a.Message == "" {
		return nil
	}
	m.alertSeq++
	seq := m.alertSeq
	m.alert = &a
	return tea.Tick(a.Level.Duration(), func(time.Time) tea.Msg {
		return alertExpiredMsg{seq: seq}
	})
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
}

func (m *Model) focusActive() tea.Cmd {
	m.editor.Blur()
	m.dictInput.Blur()
	m.history.Blur()
	switch m.activeTab {
	case tabConvert:
		return m.editor.Focus()
	case tabHistory:
		m.history.Focus()
	case tabDictionary:
		return m.dictInput.Focus()
	}
	return nil
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.editor.SetWidth(maxInt(10, m.width-2))
	m.statsView.Width = m.width
	m.statsView.Height = bodyHeight
	m.history.SetColumns(historyColumns(m.width))
	m.history.SetWidth(m.width)
	m.history.SetHeight(maxInt(2, bodyHeight-1))
	promptWidth := lipgloss.Width(m.dictInput.Prompt)
	m.dictInput.Width = maxInt(10, m.width-promptWidth-2)
	for i := range m.loginInputs {
		promptWidth := lipgloss.Width(m.loginInputs[i].Prompt)
		m.loginInputs[i].Width = maxInt(10, modalInnerWidth(m.width)-promptWidth-1)
	}
	if m.modal != nil {
		m.modal.setWidth(m.width)
	}
	m.refreshViews()
}

// refreshViews rebuilds the widgets that mirror session data.
func (m *Model) refreshViews() {
	if m.sess == nil {
		return
	}
	m.history.SetRows(historyRows(m.sess.History))
	m.statsView.SetContent(m.statsContent())
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 3
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func cloneSession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]model.HistoryEntry(nil), s.History...)
	if s.Current != nil {
		cur := *s.Current
		cur.Result.Replacements = append([]model.Replacement(nil), s.Current.Result.Replacements...)
		c.Current = &cur
	}
	return &c
}
