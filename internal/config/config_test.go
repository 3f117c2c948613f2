package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subembed/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "ADMINS", "LOG_CHANNEL", "PORT", "HOST", "FFMPEG_PATH", "NTFY_TOPIC", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMINS", "42, 7,,0")
	t.Setenv("LOG_CHANNEL", "-1001")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDownloads := filepath.Join(tempHome, ".local", "share", "subembed", "downloads")
	if cfg.Paths.DownloadDir != wantDownloads {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownloads)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("expected token from env, got %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.Admins) != 2 || cfg.Telegram.Admins[0] != 42 || cfg.Telegram.Admins[1] != 7 {
		t.Fatalf("unexpected admins: %v", cfg.Telegram.Admins)
	}
	if !cfg.IsAdmin(7) || cfg.IsAdmin(8) {
		t.Fatal("IsAdmin does not reflect admin list")
	}
	if cfg.Telegram.LogChannel != -1001 {
		t.Fatalf("unexpected log channel: %d", cfg.Telegram.LogChannel)
	}
	if cfg.Remux.TimeoutSeconds != 3600 {
		t.Fatalf("unexpected remux timeout: %d", cfg.Remux.TimeoutSeconds)
	}
	if cfg.ProbeTimeout().Seconds() != 30 {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout())
	}
	if cfg.Limits.MaxVideoBytes != 4*1024*1024*1024 {
		t.Fatalf("unexpected video limit: %d", cfg.Limits.MaxVideoBytes)
	}
	if cfg.Status.Bind != "0.0.0.0:8080" {
		t.Fatalf("unexpected status bind: %q", cfg.Status.Bind)
	}
	if err := cfg.ValidateForDaemon(); err != nil {
		t.Fatalf("ValidateForDaemon returned error: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
download_dir = "~/dl"
output_dir = "~/out"

[telegram]
token = "abc"
admins = [1, 2]

[remux]
ffmpeg_binary = "/opt/ffmpeg/bin/ffmpeg"
timeout_seconds = 600

[status]
bind = "127.0.0.1:9000"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.DownloadDir != filepath.Join(tempHome, "dl") {
		t.Fatalf("unexpected download dir: %q", cfg.Paths.DownloadDir)
	}
	if cfg.Remux.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Remux.FFmpegBinary)
	}
	if cfg.RemuxTimeout().Minutes() != 10 {
		t.Fatalf("unexpected remux timeout: %s", cfg.RemuxTimeout())
	}
	if cfg.Status.Bind != "127.0.0.1:9000" {
		t.Fatalf("unexpected bind: %q", cfg.Status.Bind)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadAppliesPortAndFFmpegEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORT", "9191")
	t.Setenv("FFMPEG_PATH", "/usr/local/bin/ffmpeg")
	t.Setenv("NTFY_TOPIC", "https://ntfy.sh/subembed")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Status.Bind != "0.0.0.0:9191" {
		t.Fatalf("expected PORT override, got %q", cfg.Status.Bind)
	}
	if cfg.Remux.FFmpegBinary != "/usr/local/bin/ffmpeg" {
		t.Fatalf("expected FFMPEG_PATH override, got %q", cfg.Remux.FFmpegBinary)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/subembed" {
		t.Fatalf("expected NTFY_TOPIC override, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "same download and output",
			content: "[paths]\ndownload_dir = \"/tmp/x\"\noutput_dir = \"/tmp/x\"\n",
			want:    "paths.download_dir",
		},
		{
			name:    "probe timeout longer than remux",
			content: "[remux]\ntimeout_seconds = 10\nprobe_timeout_seconds = 20\n",
			want:    "remux.probe_timeout_seconds",
		},
		{
			name:    "bad bind",
			content: "[status]\nbind = \"nonsense\"\n",
			want:    "status.bind",
		},
		{
			name:    "bad level",
			content: "[logging]\nlevel = \"loud\"\n",
			want:    "logging.level",
		},
		{
			name:    "bad admins env is not consulted when set in file",
			content: "[telegram]\nadmins = [\"x\"]\n",
			want:    "parse config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsMalformedAdminsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ADMINS", "12,abc")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("expected error for malformed ADMINS")
	}
}

func TestValidateForDaemonRequiresToken(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateForDaemon()
	if err == nil || !strings.Contains(err.Error(), "telegram.token") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "dl")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.ThumbDir = filepath.Join(base, "thumb")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.OutputDir, cfg.Paths.ThumbDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.UserDBPath()) != cfg.Paths.DataDir {
		t.Fatalf("unexpected user db path: %q", cfg.UserDBPath())
	}
}

func TestCreateSampleProducesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Remux.ProbeTimeoutSeconds != 30 {
		t.Fatalf("unexpected sample probe timeout: %d", parsed.Remux.ProbeTimeoutSeconds)
	}
	if parsed.Limits.MaxSubtitleBytes != 10*1024*1024 {
		t.Fatalf("unexpected sample subtitle limit: %d", parsed.Limits.MaxSubtitleBytes)
	}
}
