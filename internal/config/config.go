package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	OutputDir   string `toml:"output_dir"`
	ThumbDir    string `toml:"thumb_dir"`
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
}

// Telegram contains bot credentials and chat routing.
type Telegram struct {
	Token       string  `toml:"token"`
	APIEndpoint string  `toml:"api_endpoint"`
	Admins      []int64 `toml:"admins"`
	LogChannel  int64   `toml:"log_channel"`
	PollTimeout int     `toml:"poll_timeout"`
	Debug       bool    `toml:"debug"`
}

// Remux contains external toolchain settings for ffmpeg and ffprobe.
type Remux struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
	MuxQueueSize        int    `toml:"mux_queue_size"`
	StderrTailLines     int    `toml:"stderr_tail_lines"`
	ReportProgress      bool   `toml:"report_progress"`
}

// Limits bounds the size of accepted uploads.
type Limits struct {
	MaxVideoBytes    int64 `toml:"max_video_bytes"`
	MaxSubtitleBytes int64 `toml:"max_subtitle_bytes"`
}

// Progress controls how often progress messages are edited in chat.
type Progress struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Status contains configuration for the HTTP health/status page.
type Status struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NewUsers       bool   `toml:"new_users"`
	Failures       bool   `toml:"failures"`
}

// Cleanup controls removal of stale downloaded and produced files.
type Cleanup struct {
	StaleHours     int  `toml:"stale_hours"`
	SweepOnStartup bool `toml:"sweep_on_startup"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subembed.
//
// Configuration sections by subsystem:
//   - Paths: download/output/thumbnail directories, database and logs
//   - Telegram: bot token, admins, log channel
//   - Remux: ffmpeg/ffprobe binaries, timeouts and muxing bounds
//   - Limits: upload size limits
//   - Progress: progress message rate limit
//   - Status: HTTP status page
//   - Notifications: ntfy push notification settings
//   - Cleanup: stale artifact sweeping
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Telegram      Telegram      `toml:"telegram"`
	Remux         Remux         `toml:"remux"`
	Limits        Limits        `toml:"limits"`
	Progress      Progress      `toml:"progress"`
	Status        Status        `toml:"status"`
	Notifications Notifications `toml:"notifications"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subembed/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subembed.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates every working directory the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.OutputDir, c.Paths.ThumbDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RemuxTimeout returns the hard wall-clock bound for one remux invocation.
func (c *Config) RemuxTimeout() time.Duration {
	return time.Duration(c.Remux.TimeoutSeconds) * time.Second
}

// ProbeTimeout returns the bound for one ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Remux.ProbeTimeoutSeconds) * time.Second
}

// ProgressInterval returns the minimum spacing between progress edits.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Progress.IntervalSeconds) * time.Second
}

// StaleAge returns the age after which leftover artifacts are swept.
func (c *Config) StaleAge() time.Duration {
	return time.Duration(c.Cleanup.StaleHours) * time.Hour
}

// IsAdmin reports whether the user ID is listed in telegram.admins.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// UserDBPath returns the SQLite database location for user records.
func (c *Config) UserDBPath() string {
	return filepath.Join(c.Paths.DataDir, "users.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "subembed.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
