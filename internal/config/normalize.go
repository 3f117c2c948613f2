package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	c.normalizeRemux()
	c.normalizeLimits()
	c.normalizeStatus()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.download_dir", &c.Paths.DownloadDir, defaultDownloadDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.thumb_dir", &c.Paths.ThumbDir, defaultThumbDir},
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		if value, ok := os.LookupEnv("BOT_TOKEN"); ok {
			c.Telegram.Token = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIEndpoint = strings.TrimSpace(c.Telegram.APIEndpoint)
	if len(c.Telegram.Admins) == 0 {
		if value, ok := os.LookupEnv("ADMINS"); ok {
			admins, err := parseIDList(value)
			if err != nil {
				return fmt.Errorf("ADMINS: %w", err)
			}
			c.Telegram.Admins = admins
		}
	}
	if c.Telegram.LogChannel == 0 {
		if value, ok := os.LookupEnv("LOG_CHANNEL"); ok && strings.TrimSpace(value) != "" {
			id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return fmt.Errorf("LOG_CHANNEL: %w", err)
			}
			c.Telegram.LogChannel = id
		}
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	return nil
}

// parseIDList reads a comma separated list of user IDs, skipping blanks and zeros.
func parseIDList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "0" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) normalizeRemux() {
	c.Remux.FFmpegBinary = strings.TrimSpace(c.Remux.FFmpegBinary)
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" && c.Remux.FFmpegBinary == defaultFFmpegBinary {
		c.Remux.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Remux.FFmpegBinary == "" {
		c.Remux.FFmpegBinary = defaultFFmpegBinary
	}
	c.Remux.FFprobeBinary = strings.TrimSpace(c.Remux.FFprobeBinary)
	if c.Remux.FFprobeBinary == "" {
		c.Remux.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Remux.TimeoutSeconds <= 0 {
		c.Remux.TimeoutSeconds = defaultRemuxTimeout
	}
	if c.Remux.ProbeTimeoutSeconds <= 0 {
		c.Remux.ProbeTimeoutSeconds = defaultProbeTimeout
	}
	if c.Remux.MuxQueueSize <= 0 {
		c.Remux.MuxQueueSize = defaultMuxQueueSize
	}
	if c.Remux.StderrTailLines <= 0 {
		c.Remux.StderrTailLines = defaultStderrTailLines
	}
	if c.Progress.IntervalSeconds <= 0 {
		c.Progress.IntervalSeconds = defaultProgressInterval
	}
	if c.Cleanup.StaleHours <= 0 {
		c.Cleanup.StaleHours = defaultCleanupStaleHours
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.MaxVideoBytes <= 0 {
		c.Limits.MaxVideoBytes = defaultMaxVideoBytes
	}
	if c.Limits.MaxSubtitleBytes <= 0 {
		c.Limits.MaxSubtitleBytes = defaultMaxSubtitleBytes
	}
}

func (c *Config) normalizeStatus() {
	c.Status.Bind = strings.TrimSpace(c.Status.Bind)
	if c.Status.Bind == "" {
		c.Status.Bind = defaultStatusBind
	}
	// PORT/HOST mirror the hosting-platform convention and only override the default bind.
	if c.Status.Bind != defaultStatusBind {
		return
	}
	host, port, err := net.SplitHostPort(c.Status.Bind)
	if err != nil {
		return
	}
	if value, ok := os.LookupEnv("HOST"); ok && strings.TrimSpace(value) != "" {
		host = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		port = strings.TrimSpace(value)
	}
	c.Status.Bind = net.JoinHostPort(host, port)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		if value, ok := os.LookupEnv("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
		} else {
			c.Logging.Level = defaultLogLevel
		}
	}
}
