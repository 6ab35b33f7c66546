package llm

import (
	"strings"
	"testing"
)

func TestUnwrapCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```json {\"a\":1}```", `{"a":1}`},
		{"content on fence line", "```{\"a\":\n1}\n```", "{\"a\":\n1}"},
		{"missing closing fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"nested keeps inner", "```\n```json\n{\"a\":1}\n```\n```", "```json\n{\"a\":1}\n```"},
		{"not json untouched", "not json", "not json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UnwrapCodeFence(tc.in); got != tc.want {
				t.Fatalf("UnwrapCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Snippet(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if Snippet("   ") != "<empty>" {
		t.Fatal("expected <empty> for blank input")
	}
	if Snippet("a\n\tb") != "a b" {
		t.Fatalf("expected whitespace collapsed, got %q", Snippet("a\n\tb"))
	}
}
