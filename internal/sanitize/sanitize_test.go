package sanitize

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeStructuredReply(t *testing.T) {
	got, err := Sanitize(`{"convertedText": "쉬운 문장입니다", "replacements": []}`)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "쉬운 문장입니다" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizePlainReply(t *testing.T) {
	got, err := Sanitize("  서류를 내 주세요.\n")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "서류를 내 주세요." {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeFencedJSON(t *testing.T) {
	raw := "```json\n{\"convertedText\": \"알아봐 줘\", \"replacements\": [{\"original\": \"확인\", \"simple\": \"알아보기\"}]}\n```"
	got, err := Sanitize(raw)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "알아봐 줘" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeQuotedSentence(t *testing.T) {
	got, err := Sanitize(`"도와주세요, 부탁해요",`)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "도와주세요, 부탁해요" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeRejectsShortResult(t *testing.T) {
	for _, raw := range []string{"", "  ", "네", `"예"`, ",,응,,"} {
		if _, err := Sanitize(raw); !errors.Is(err, ErrSanitization) {
			t.Fatalf("expected ErrSanitization for %q, got %v", raw, err)
		}
	}
}

func TestSanitizeRejectsObjectWithoutText(t *testing.T) {
	if _, err := Sanitize(`{"replacements": []}`); !errors.Is(err, ErrSanitization) {
		t.Fatalf("expected ErrSanitization, got %v", err)
	}
}

func TestSanitizeRejectsLeftoverKey(t *testing.T) {
	if _, err := Sanitize(`결과 convertedText 없음`); !errors.Is(err, ErrSanitization) {
		t.Fatalf("expected ErrSanitization, got %v", err)
	}
}

func TestSanitizeNeverReturnsBraces(t *testing.T) {
	inputs := []string{
		`앞 {"convertedText": "가나다라"} 뒤`,
		`{"convertedText": "쉬운 말"`,
		`}}}{{{`,
		"```\n{}\n```",
		`설명: {"a": {"b": 1}} 끝`,
	}
	for _, raw := range inputs {
		got, err := Sanitize(raw)
		if err != nil {
			continue
		}
		if strings.ContainsAny(got, "{}") {
			t.Fatalf("sanitize(%q) returned braces: %q", raw, got)
		}
	}
}

func TestExtractStructuredFallsBackToPattern(t *testing.T) {
	raw := `{"convertedText": "천천히 해요", "replacements": [{"original": "처리"}]}`
	if got := ExtractStructured(raw); got != "천천히 해요" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestExtractStructuredKeepsValidObjectWithEmptyText(t *testing.T) {
	raw := `{"convertedText": "  "} 그리고 문장`
	if got := ExtractStructured(raw); got != raw {
		t.Fatalf("expected input unchanged, got %q", got)
	}
}

func TestPipelineSteps(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"fences", StripFences, "```json\n문장\n```\n", "문장\n"},
		{"object", StripObject, "{\n\"a\": 1\n}", ""},
		{"object keeps prose", StripObject, "문장 {a}", "문장 {a}"},
		{"json chars", StripJSONChars, `"문장{}"`, "문장"},
		{"key", StripKey, "convertedText : 문장", "문장"},
		{"replacements", StripReplacements, "문장, replacements: [\n확인\n]", "문장, "},
		{"edges", TrimEdges, " ,문장, ", "문장"},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.in); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPipelineOrder(t *testing.T) {
	names := make([]string, len(Pipeline))
	for i, step := range Pipeline {
		names[i] = step.Name
	}
	want := "trim,structured,fences,object,json-chars,key,replacements,edges"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("unexpected pipeline order: %s", got)
	}
}
