package daemon_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subembed/internal/testsupport"
)

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestStatusServerEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Status.Enabled = true
	if err := os.MkdirAll(cfg.Paths.DownloadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadDir, "1_video_a.mkv"), 16)

	d := newDaemon(t, cfg, newStubPoller(), &stubDispatcher{active: 1})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := d.StatusAddr()
	if addr == "" {
		t.Fatal("expected status address")
	}
	base := "http://" + addr

	tests := []struct {
		name  string
		path  string
		code  int
		check func(t *testing.T, body []byte)
	}{
		{
			name: "index",
			path: "/",
			code: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				if !strings.Contains(string(body), "is running") {
					t.Fatalf("unexpected index body %q", body)
				}
			},
		},
		{
			name: "health",
			path: "/health",
			code: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var payload map[string]any
				if err := json.Unmarshal(body, &payload); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if payload["status"] != "healthy" {
					t.Fatalf("unexpected health %v", payload)
				}
				if _, ok := payload["disk_free_gb"]; !ok {
					t.Fatalf("missing disk_free_gb in %v", payload)
				}
			},
		},
		{
			name: "status",
			path: "/status",
			code: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var payload struct {
					Status       string         `json:"status"`
					Version      string         `json:"version"`
					ActiveUsers  int            `json:"active_users"`
					Files        map[string]int `json:"files"`
					Dependencies []struct {
						Name      string `json:"name"`
						Available bool   `json:"available"`
					} `json:"dependencies"`
				}
				if err := json.Unmarshal(body, &payload); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if payload.Status != "running" || payload.Version != "test" || payload.ActiveUsers != 1 {
					t.Fatalf("unexpected status payload %+v", payload)
				}
				if payload.Files["download_dir"] != 1 || payload.Files["output_dir"] != 0 {
					t.Fatalf("unexpected file counts %v", payload.Files)
				}
				if len(payload.Dependencies) != 1 || !payload.Dependencies[0].Available {
					t.Fatalf("unexpected dependencies %+v", payload.Dependencies)
				}
			},
		},
		{
			name: "unknown path",
			path: "/nope",
			code: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, base+tt.path)
			if code != tt.code {
				t.Fatalf("expected %d, got %d (%s)", tt.code, code, body)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestStatusServerUnhealthyWithoutDownloadDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Status.Enabled = true
	d := newDaemon(t, cfg, newStubPoller(), &stubDispatcher{})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	code, body := get(t, "http://"+d.StatusAddr()+"/health")
	if code != http.StatusServiceUnavailable || !strings.Contains(string(body), "unhealthy") {
		t.Fatalf("expected unhealthy 503, got %d %s", code, body)
	}
}
