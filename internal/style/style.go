// Package style holds the speech style registry.
package style

import (
	"fmt"

	"github.com/verte-zerg/easytalk/internal/model"
)

// Setting describes how one speech style is presented and prompted.
type Setting struct {
	DisplayName string
	Description string
	Prompt      string
}

const promptHeader = `다음 문장을 쉬운 말로 바꿔주세요. JSON이나 설명 없이 바뀐 문장만 답하세요.

규칙:
- 어려운 말을 쉬운 말로
`

const promptFooter = `- 다른 설명 없이 바뀐 문장만

바꿀 문장: "`

var registry = map[model.SpeechStyle]Setting{
	model.StylePolite: {
		DisplayName: "존댓말 (~요, ~해주세요)",
		Description: "정중하고 예의바른 말투",
		Prompt:      promptHeader + "- 존댓말로 표현\n" + promptFooter,
	},
	model.StyleCasual: {
		DisplayName: "반말 (~다, ~야, ~해)",
		Description: "친근하고 편안한 말투",
		Prompt:      promptHeader + "- 반말로 표현\n" + promptFooter,
	},
}

// Lookup returns the setting for a style.
func Lookup(s model.SpeechStyle) (Setting, error) {
	setting, ok := registry[s]
	if !ok {
		return Setting{}, fmt.Errorf("unknown speech style %q", s)
	}
	return setting, nil
}

// Name returns the display name for a style, or the raw value when unknown.
func Name(s model.SpeechStyle) string {
	if setting, ok := registry[s]; ok {
		return setting.DisplayName
	}
	return string(s)
}

// BuildPrompt wraps text in the instruction header for the style.
func BuildPrompt(s model.SpeechStyle, text string) (string, error) {
	setting, err := Lookup(s)
	if err != nil {
		return "", err
	}
	return setting.Prompt + text + `"`, nil
}

// All returns the styles in display order.
func All() []model.SpeechStyle {
	return []model.SpeechStyle{model.StylePolite, model.StyleCasual}
}
