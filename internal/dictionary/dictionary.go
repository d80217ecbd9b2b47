// Package dictionary holds the built-in lookup entries for difficult words.
package dictionary

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when a word has no entry.
var ErrNotFound = errors.New("word not found in dictionary")

// ErrEmptyWord is returned for blank lookups and incomplete proposals.
var ErrEmptyWord = errors.New("word is empty")

// Entry explains one difficult word.
type Entry struct {
	Word          string
	Meaning       string
	Pronunciation string
	Example       string
	EasyForm      string
}

var entries = map[string]Entry{
	"확인": {
		Word:          "확인",
		Meaning:       "어떤 사실이나 내용을 자세히 알아보거나 틀림없음을 조사하여 확실하게 하는 것",
		Pronunciation: "[확인]",
		Example:       "예약 시간을 확인해 주세요.",
		EasyForm:      "알아보기",
	},
	"협조": {
		Word:          "협조",
		Meaning:       "서로 마음과 힘을 합하여 도움",
		Pronunciation: "[협조]",
		Example:       "모든 분들의 협조가 필요합니다.",
		EasyForm:      "도움",
	},
	"신청": {
		Word:          "신청",
		Meaning:       "어떤 일을 해 달라고 관계 기관이나 사람에게 청하여 요구하는 일",
		Pronunciation: "[신청]",
		Example:       "대출 신청을 하고 싶습니다.",
		EasyForm:      "요청하기",
	},
}

// Lookup returns the entry for word.
func Lookup(word string) (Entry, error) {
	key := normalize(word)
	if key == "" {
		return Entry{}, ErrEmptyWord
	}
	entry, ok := entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Words lists the dictionary words in sorted order.
func Words() []string {
	words := make([]string, 0, len(entries))
	for w := range entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Proposal is a request to add a word. Proposals are not stored; an
// operator adds accepted words by hand.
type Proposal struct {
	Entry
}

// NewProposal validates a proposal. Every field is required.
func NewProposal(word, meaning, example, easyForm string) (Proposal, error) {
	p := Proposal{Entry{
		Word:     normalize(word),
		Meaning:  normalize(meaning),
		Example:  normalize(example),
		EasyForm: normalize(easyForm),
	}}
	if p.Word == "" || p.Meaning == "" || p.Example == "" || p.EasyForm == "" {
		return Proposal{}, ErrEmptyWord
	}
	p.Pronunciation = "[" + p.Word + "]"
	return p, nil
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
