package config

const (
	defaultDownloadDir         = "~/.local/share/subembed/downloads"
	defaultOutputDir           = "~/.local/share/subembed/output"
	defaultThumbDir            = "~/.local/share/subembed/thumbnails"
	defaultDataDir             = "~/.local/share/subembed"
	defaultLogDir              = "~/.local/share/subembed/logs"
	defaultPollTimeout         = 60
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultRemuxTimeout        = 3600
	defaultProbeTimeout        = 30
	defaultMuxQueueSize        = 1024
	defaultStderrTailLines     = 20
	defaultMaxVideoBytes       = 4 * 1024 * 1024 * 1024
	defaultMaxSubtitleBytes    = 10 * 1024 * 1024
	defaultProgressInterval    = 10
	defaultStatusBind          = "0.0.0.0:8080"
	defaultNotifyTimeout       = 10
	defaultCleanupStaleHours   = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyNewUsers      = true
	defaultNotifyFailures      = true
	defaultStatusEnabled       = true
	defaultCleanupOnStartup    = true
	defaultRemuxReportProgress = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			OutputDir:   defaultOutputDir,
			ThumbDir:    defaultThumbDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Telegram: Telegram{
			PollTimeout: defaultPollTimeout,
		},
		Remux: Remux{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			TimeoutSeconds:      defaultRemuxTimeout,
			ProbeTimeoutSeconds: defaultProbeTimeout,
			MuxQueueSize:        defaultMuxQueueSize,
			StderrTailLines:     defaultStderrTailLines,
			ReportProgress:      defaultRemuxReportProgress,
		},
		Limits: Limits{
			MaxVideoBytes:    defaultMaxVideoBytes,
			MaxSubtitleBytes: defaultMaxSubtitleBytes,
		},
		Progress: Progress{
			IntervalSeconds: defaultProgressInterval,
		},
		Status: Status{
			Enabled: defaultStatusEnabled,
			Bind:    defaultStatusBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			NewUsers:       defaultNotifyNewUsers,
			Failures:       defaultNotifyFailures,
		},
		Cleanup: Cleanup{
			StaleHours:     defaultCleanupStaleHours,
			SweepOnStartup: defaultCleanupOnStartup,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
