// Package fallback rewrites text with fixed rules when the model is unavailable.
package fallback

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/easytalk/internal/model"
)

type wordRule struct {
	difficult string
	simple    string
}

// Order matters: rules are applied top to bottom.
var wordRules = []wordRule{
	{difficult: "확인", simple: "알아보기"},
	{difficult: "협조", simple: "도움"},
	{difficult: "신청", simple: "부탁하기"},
	{difficult: "제출", simple: "내기"},
	{difficult: "접수", simple: "받기"},
	{difficult: "발급", simple: "만들어 주기"},
	{difficult: "처리", simple: "해결하기"},
	{difficult: "승인", simple: "허락하기"},
	{difficult: "검토", simple: "살펴보기"},
	{difficult: "완료", simple: "끝내기"},
}

type suffixRule struct {
	from string
	to   string
}

var suffixRules = map[model.SpeechStyle][]suffixRule{
	model.StylePolite: {
		{from: "습니다", to: "해요"},
		{from: "바랍니다", to: "주세요"},
	},
	model.StyleCasual: {
		{from: "습니다", to: "해"},
		{from: "바랍니다", to: "줘"},
		{from: "세요", to: ""},
	},
}

// DifficultWords returns the dictionary words in rule order.
func DifficultWords() []string {
	words := make([]string, len(wordRules))
	for i, r := range wordRules {
		words[i] = r.difficult
	}
	return words
}

// Rewrite simplifies text deterministically. It never fails.
func Rewrite(text string, style model.SpeechStyle) model.ConversionResult {
	converted := norm.NFC.String(text)
	replacements := []model.Replacement{}
	for _, r := range wordRules {
		if !strings.Contains(converted, r.difficult) {
			continue
		}
		converted = strings.ReplaceAll(converted, r.difficult, r.simple)
		replacements = append(replacements, model.Replacement{Original: r.difficult, Simple: r.simple})
	}

	rules, ok := suffixRules[style]
	if !ok {
		// Anything that is not polite is treated as casual.
		rules = suffixRules[model.StyleCasual]
	}
	for _, r := range rules {
		converted = strings.ReplaceAll(converted, r.from, r.to)
	}

	return model.ConversionResult{
		ConvertedText: converted,
		Replacements:  replacements,
		Source:        model.SourceFallback,
		Style:         style,
	}
}
