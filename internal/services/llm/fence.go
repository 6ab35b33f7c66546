package llm

import "strings"

const codeFence = "```"

// UnwrapCodeFence removes a single markdown code fence around text, if one is
// present. The opening fence may carry a language tag. Only the outermost
// wrapper is removed; nested fences are left in place.
func UnwrapCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, codeFence) {
		return trimmed
	}
	body := trimmed[len(codeFence):]
	if idx := strings.IndexByte(body, '\n'); idx >= 0 && isFenceTag(body[:idx]) {
		body = body[idx+1:]
	} else {
		body = strings.TrimPrefix(strings.TrimLeft(body, " \t"), "json")
	}
	body = strings.TrimSpace(body)
	if strings.HasSuffix(body, codeFence) {
		body = body[:len(body)-len(codeFence)]
	}
	return strings.TrimSpace(body)
}

func isFenceTag(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '+') {
			return false
		}
	}
	return true
}

// Snippet collapses whitespace and truncates text for log lines.
func Snippet(content string) string {
	return summarizePayloadSnippet(content)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
