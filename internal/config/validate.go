package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemux(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateStatus(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateForDaemon adds the checks only the long-running bot needs, so CLI
// utilities such as `users list` keep working without credentials.
func (c *Config) ValidateForDaemon() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subembed/config.toml"
		}
		return fmt.Errorf("telegram.token is required. Set BOT_TOKEN env var or edit %s (create with 'subembed config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DownloadDir == c.Paths.OutputDir {
		return errors.New("paths.download_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateRemux() error {
	if c.Remux.ProbeTimeoutSeconds >= c.Remux.TimeoutSeconds {
		return errors.New("remux.probe_timeout_seconds must be shorter than remux.timeout_seconds")
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxSubtitleBytes > c.Limits.MaxVideoBytes {
		return errors.New("limits.max_subtitle_bytes must not exceed limits.max_video_bytes")
	}
	return nil
}

func (c *Config) validateStatus() error {
	if !c.Status.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Status.Bind); err != nil {
		return fmt.Errorf("status.bind %q: %w", c.Status.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
