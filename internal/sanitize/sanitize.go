// Package sanitize recovers a plain sentence from a free-text model reply.
//
// Models asked for "only the rewritten sentence" still answer with JSON
// objects, fenced code blocks or half-structured fragments. Sanitize runs an
// ordered list of cleanup steps over the reply and rejects whatever still
// looks structured or degenerate afterwards.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// KeyName is the field models use when they answer with a JSON object.
const KeyName = "convertedText"

// MinLength is the shortest accepted result, in characters.
const MinLength = 3

// ErrSanitization means the cleaned reply is unusable and the caller should
// fall back to rule-based rewriting.
var ErrSanitization = errors.New("sanitized reply is empty or still structured")

var (
	objectSpanRe   = regexp.MustCompile(`\{[\s\S]*?\}`)
	keyValueRe     = regexp.MustCompile(`"` + KeyName + `"\s*:\s*"([^"]+)"`)
	jsonFenceRe    = regexp.MustCompile("```json\n?")
	fenceRe        = regexp.MustCompile("```\n?")
	objectRe       = regexp.MustCompile(`(?s)^\{.*\}$`)
	jsonCharsRe    = regexp.MustCompile(`["{}]`)
	keyRe          = regexp.MustCompile(KeyName + `\s*:\s*`)
	replacementsRe = regexp.MustCompile(`(?s)replacements\s*:\s*\[.*\]`)
	edgesRe        = regexp.MustCompile(`^[\s,]+|[\s,]+$`)
)

// Step is one named stage of the cleanup pipeline.
type Step struct {
	Name  string
	Apply func(string) string
}

// Pipeline lists the cleanup steps in the order they run.
var Pipeline = []Step{
	{Name: "trim", Apply: strings.TrimSpace},
	{Name: "structured", Apply: ExtractStructured},
	{Name: "fences", Apply: StripFences},
	{Name: "object", Apply: StripObject},
	{Name: "json-chars", Apply: StripJSONChars},
	{Name: "key", Apply: StripKey},
	{Name: "replacements", Apply: StripReplacements},
	{Name: "edges", Apply: TrimEdges},
}

// Sanitize cleans raw and returns the sentence, or ErrSanitization.
func Sanitize(raw string) (string, error) {
	out := Clean(raw)
	if !Usable(out) {
		return "", ErrSanitization
	}
	return out, nil
}

// Clean runs every pipeline step without judging the result.
func Clean(raw string) string {
	out := raw
	for _, step := range Pipeline {
		out = step.Apply(out)
	}
	return out
}

// Usable reports whether a cleaned string can be shown as a result.
func Usable(s string) bool {
	if s == "" || utf8.RuneCountInString(s) < MinLength {
		return false
	}
	if strings.ContainsAny(s, "{}") || strings.Contains(s, KeyName) {
		return false
	}
	return true
}

// ExtractStructured replaces s with the convertedText value when s carries a
// JSON object holding one. A strict parse of the first object span is tried
// first, then a direct pattern match on the key.
func ExtractStructured(s string) string {
	if !strings.Contains(s, "{") || !strings.Contains(s, KeyName) {
		return s
	}
	span := objectSpanRe.FindString(s)
	if span == "" {
		return s
	}
	if gjson.Valid(span) {
		if value, ok := ParseStructured(span); ok {
			return value
		}
		return s
	}
	if value, ok := MatchStructured(s); ok {
		return value
	}
	return s
}

// ParseStructured strictly parses span and returns its trimmed text field.
func ParseStructured(span string) (string, bool) {
	if !gjson.Valid(span) {
		return "", false
	}
	value := gjson.Get(span, KeyName)
	if value.Type != gjson.String {
		return "", false
	}
	text := strings.TrimSpace(value.String())
	if text == "" {
		return "", false
	}
	return text, true
}

// MatchStructured pulls the text field out of s without parsing it.
func MatchStructured(s string) (string, bool) {
	m := keyValueRe.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// StripFences removes markdown code fence markers.
func StripFences(s string) string {
	s = jsonFenceRe.ReplaceAllString(s, "")
	return fenceRe.ReplaceAllString(s, "")
}

// StripObject drops s entirely when the whole string is a JSON object.
func StripObject(s string) string {
	return objectRe.ReplaceAllString(s, "")
}

// StripJSONChars removes stray braces and double quotes.
func StripJSONChars(s string) string {
	return jsonCharsRe.ReplaceAllString(s, "")
}

// StripKey removes a leftover "convertedText:" fragment.
func StripKey(s string) string {
	return keyRe.ReplaceAllString(s, "")
}

// StripReplacements removes a trailing "replacements: [...]" fragment.
func StripReplacements(s string) string {
	return replacementsRe.ReplaceAllString(s, "")
}

// TrimEdges trims whitespace and commas at both ends.
func TrimEdges(s string) string {
	return edgesRe.ReplaceAllString(strings.TrimSpace(s), "")
}
