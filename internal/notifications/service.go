package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sopgen/internal/config"
)

const userAgent = "sopgen/0.1.0"

// Event identifies a run milestone worth a push notification.
type Event string

const (
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: title, video, output, steps,
// duration, stage, error.
type Payload map[string]any

// Service is the notification surface used by the pipeline.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service when a topic is configured and a
// no-op otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		onFailure: cfg.Notifications.OnFailure,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	onFailure bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		if !n.onSuccess {
			return message{}, false
		}
		title := payloadString(payload, "title")
		if title == "" {
			title = payloadString(payload, "video")
		}
		body := fmt.Sprintf("📄 SOP ready: %s", title)
		if steps, ok := payload["steps"].(int); ok {
			body += fmt.Sprintf(" (%d steps)", steps)
		}
		if output := payloadString(payload, "output"); output != "" {
			body += "\nFile: " + output
		}
		if d, ok := payload["duration"].(time.Duration); ok && d > 0 {
			body += "\nTook: " + d.Round(time.Second).String()
		}
		return message{
			title: "sopgen - Complete",
			body:  body,
			tags:  []string{"sopgen", "run", "completed"},
		}, true
	case EventRunFailed:
		if !n.onFailure {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Failed")
		if video := payloadString(payload, "video"); video != "" {
			b.WriteString(": ")
			b.WriteString(video)
		}
		if stage := payloadString(payload, "stage"); stage != "" {
			b.WriteString("\nStage: ")
			b.WriteString(stage)
		}
		b.WriteString("\nError: ")
		if reason := payloadString(payload, "error"); reason != "" {
			b.WriteString(reason)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "sopgen - Error",
			body:     b.String(),
			tags:     []string{"sopgen", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "sopgen - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"sopgen", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return ""
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
