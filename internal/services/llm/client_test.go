package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"content": content},
				"finish_reason": "stop",
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestGenerateSendsMultimodalPayload(t *testing.T) {
	var captured map[string]any
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		writeCompletion(t, w, `{"title":"x"}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:      "secret",
		BaseURL:     server.URL,
		Model:       "demo/vision",
		Title:       "sopgen",
		Temperature: 0.4,
		TopP:        0.95,
		MaxTokens:   8192,
	})
	out, err := client.Generate(context.Background(), Request{
		Prompt: "describe",
		Images: []Image{
			{MIMEType: "image/jpeg", Data: []byte("first")},
			{Data: []byte("second")},
		},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != `{"title":"x"}` {
		t.Fatalf("unexpected content %q", out)
	}

	if got := headers.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", got)
	}
	if got := headers.Get("X-Title"); got != "sopgen" {
		t.Fatalf("unexpected title header %q", got)
	}
	if captured["model"] != "demo/vision" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	if captured["temperature"] != 0.4 || captured["top_p"] != 0.95 || captured["max_tokens"] != float64(8192) {
		t.Fatalf("unexpected sampling parameters: %v", captured)
	}

	messages := captured["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected a single message, got %d", len(messages))
	}
	parts := messages[0].(map[string]any)["content"].([]any)
	if len(parts) != 3 {
		t.Fatalf("expected text + 2 images, got %d parts", len(parts))
	}
	if first := parts[0].(map[string]any); first["type"] != "text" || first["text"] != "describe" {
		t.Fatalf("unexpected text part: %v", first)
	}
	wantFirst := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("first"))
	wantSecond := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("second"))
	for i, want := range []string{wantFirst, wantSecond} {
		part := parts[i+1].(map[string]any)
		if part["type"] != "image_url" {
			t.Fatalf("part %d: unexpected type %v", i+1, part["type"])
		}
		if url := part["image_url"].(map[string]any)["url"]; url != want {
			t.Fatalf("part %d: unexpected url %v", i+1, url)
		}
	}
}

func TestGenerateReturnsContentUntrimmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "  not json\n")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	out, err := client.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "  not json\n" {
		t.Fatalf("expected raw content, got %q", out)
	}
}

func TestGenerateSingleAttemptOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPStatusError 429, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","refusal":"no"},"finish_reason":"content_filter"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	var emptyErr *EmptyContentError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyContentError, got %v", err)
	}
	if emptyErr.FinishReason != "content_filter" || emptyErr.Refusal != "no" {
		t.Fatalf("unexpected details: %+v", emptyErr)
	}
}

func TestGenerateAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout=50ms") {
		t.Fatalf("expected timeout in message, got %v", err)
	}
}

func TestGenerateRequiresKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Generate(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Fatal("expected missing key error")
	}
	client = NewClient(Config{APIKey: "k"})
	if _, err := client.Generate(context.Background(), Request{Prompt: "  "}); err == nil {
		t.Fatal("expected missing prompt error")
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if client.cfg.BaseURL != defaultBaseURL {
		t.Fatalf("unexpected base url %q", client.cfg.BaseURL)
	}
	if client.httpClient.Timeout != defaultHTTPTimeout {
		t.Fatalf("unexpected timeout %s", client.httpClient.Timeout)
	}
}
