package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"subembed/internal/config"
	"subembed/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyNewUser(context.Background(), 1, "someone"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "new user with name",
			send: func(s notifications.Service) error {
				return s.NotifyNewUser(context.Background(), 42, " Ada ")
			},
			expectTitle:   "subembed - New User",
			expectMessage: "👤 New user: Ada (42)",
			expectTags:    "subembed,user,new",
		},
		{
			name: "new user without name",
			send: func(s notifications.Service) error {
				return s.NotifyNewUser(context.Background(), 42, "")
			},
			expectTitle:   "subembed - New User",
			expectMessage: "👤 New user: 42",
			expectTags:    "subembed,user,new",
		},
		{
			name: "job failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), 9, "timeout", errors.New("ffmpeg timed out"))
			},
			expectTitle:    "subembed - Job Failed",
			expectMessage:  "❌ Remux failed for user 9 (timeout): ffmpeg timed out",
			expectTags:     "subembed,error,alert",
			expectPriority: "high",
		},
		{
			name: "daemon started",
			send: func(s notifications.Service) error {
				return s.NotifyDaemonStarted(context.Background(), "")
			},
			expectTitle:    "subembed - Started",
			expectMessage:  "🤖 Bot online (dev)",
			expectTags:     "subembed,daemon,started",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursDisabledCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.NewUsers = false
	cfg.Notifications.Failures = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyNewUser(context.Background(), 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyJobFailed(context.Background(), 1, "exit", errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
