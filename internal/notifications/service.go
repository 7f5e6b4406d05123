package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"easel/internal/config"
)

const userAgent = "easel/0.1.0"

// Service defines the notification surface exposed to collection runs.
type Service interface {
	NotifyRunStarted(ctx context.Context, runner string, target int) error
	NotifyRunCompleted(ctx context.Context, runner string, collected int, duration time.Duration, exhausted bool) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, runner string, target int) error {
	runner = strings.TrimSpace(runner)
	data := payload{
		title:   "Easel - Run Started",
		message: fmt.Sprintf("Collecting %s: target %d instances per category", runner, target),
		tags:    []string{"easel", runner, "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, runner string, collected int, duration time.Duration, exhausted bool) error {
	runner = strings.TrimSpace(runner)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if exhausted {
		title = "Easel - Source Exhausted"
		message = fmt.Sprintf("Collected %d %s instances in %s before the source ran dry", collected, runner, duration)
	} else {
		title = "Easel - Run Complete"
		message = fmt.Sprintf("Collected %d %s instances in %s", collected, runner, duration)
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"easel", runner, "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Easel - Error",
		message:  builder.String(),
		tags:     []string{"easel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Easel - Test",
		message:  "Notification system test",
		tags:     []string{"easel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, int, time.Duration, bool) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
