package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subembed/internal/config"
)

const userAgent = "subembed/0.1.0"

// Service defines the notification surface used by the bot and daemon.
type Service interface {
	NotifyNewUser(ctx context.Context, userID int64, displayName string) error
	NotifyJobFailed(ctx context.Context, userID int64, kind string, err error) error
	NotifyDaemonStarted(ctx context.Context, version string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		newUsers: cfg.Notifications.NewUsers,
		failures: cfg.Notifications.Failures,
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
	newUsers bool
	failures bool
}

func (n *ntfyService) NotifyNewUser(ctx context.Context, userID int64, displayName string) error {
	if !n.newUsers {
		return nil
	}
	message := fmt.Sprintf("👤 New user: %d", userID)
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		message = fmt.Sprintf("👤 New user: %s (%d)", displayName, userID)
	}
	return n.send(ctx, payload{
		title:   "subembed - New User",
		message: message,
		tags:    []string{"subembed", "user", "new"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, userID int64, kind string, err error) error {
	if !n.failures {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "❌ Remux failed for user %d", userID)
	if kind = strings.TrimSpace(kind); kind != "" {
		builder.WriteString(" (")
		builder.WriteString(kind)
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "subembed - Job Failed",
		message:  builder.String(),
		tags:     []string{"subembed", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	return n.send(ctx, payload{
		title:    "subembed - Started",
		message:  fmt.Sprintf("🤖 Bot online (%s)", version),
		tags:     []string{"subembed", "daemon", "started"},
		priority: "low",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "subembed - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"subembed", "test"},
		priority: "low",
	})
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

func (noopService) NotifyNewUser(context.Context, int64, string) error          { return nil }
func (noopService) NotifyJobFailed(context.Context, int64, string, error) error { return nil }
func (noopService) NotifyDaemonStarted(context.Context, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
