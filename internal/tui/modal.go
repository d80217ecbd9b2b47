package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalAPIKey modalKind = iota
	modalReset
	modalPropose
)

type modal struct {
	kind   modalKind
	title  string
	hint   string
	inputs []textinput.Model
	focus  int
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func newAPIKeyModal() *modal {
	input := newInput("API 키: ", "AIza...")
	input.EchoMode = textinput.EchoPassword
	return &modal{
		kind:   modalAPIKey,
		title:  "Gemini API 키 설정",
		hint:   "enter: 저장  빈 값: 설정 파일의 키로 되돌리기  esc: 취소",
		inputs: []textinput.Model{input},
	}
}

func newResetModal() *modal {
	return &modal{
		kind:   modalReset,
		title:  "모든 데이터 삭제",
		hint:   "통계, 히스토리, 말투 설정이 삭제됩니다. \"삭제\"를 입력하세요.  esc: 취소",
		inputs: []textinput.Model{newInput("확인: ", "삭제")},
	}
}

func newProposeModal() *modal {
	return &modal{
		kind:  modalPropose,
		title: "사전 단어 추가 요청",
		hint:  "tab: 다음 칸  enter: 요청  esc: 취소",
		inputs: []textinput.Model{
			newInput("단어: ", "예) 확인"),
			newInput("뜻: ", ""),
			newInput("예문: ", ""),
			newInput("쉬운 말: ", ""),
		},
	}
}

func (d *modal) open() tea.Cmd {
	d.focus = 0
	return d.inputs[0].Focus()
}

func (d *modal) values() []string {
	out := make([]string, len(d.inputs))
	for i, input := range d.inputs {
		out[i] = strings.TrimSpace(input.Value())
	}
	return out
}

// moveFocus cycles through the inputs.
func (d *modal) moveFocus(delta int) tea.Cmd {
	d.inputs[d.focus].Blur()
	d.focus = (d.focus + delta + len(d.inputs)) % len(d.inputs)
	return d.inputs[d.focus].Focus()
}

func (d *modal) lastFocused() bool {
	return d.focus == len(d.inputs)-1
}

func (d *modal) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.inputs[d.focus], cmd = d.inputs[d.focus].Update(msg)
	return cmd
}

func (d *modal) setWidth(width int) {
	inner := modalInnerWidth(width)
	for i := range d.inputs {
		promptWidth := lipgloss.Width(d.inputs[i].Prompt)
		d.inputs[i].Width = maxInt(10, inner-promptWidth-1)
	}
}

func (d *modal) view(width int) string {
	lines := []string{titleStyle.Render(d.title), ""}
	for _, input := range d.inputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, "", footerStyle.Render(d.hint))
	content := strings.Join(lines, "\n")
	return modalStyle.Width(modalWidth(width) - 2).Render(content)
}

func modalWidth(width int) int {
	return maxInt(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}
