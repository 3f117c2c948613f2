package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"subembed/internal/bot"
	"subembed/internal/config"
	"subembed/internal/daemon"
	"subembed/internal/deps"
	"subembed/internal/logging"
	"subembed/internal/media/ffprobe"
	"subembed/internal/notifications"
	"subembed/internal/preflight"
	"subembed/internal/remux"
	"subembed/internal/session"
	"subembed/internal/staging"
	"subembed/internal/telegram"
	"subembed/internal/users"
)

// Options configures daemon process runtime behavior.
type Options struct {
	Version  string
	LogLevel string
}

// Run starts the bot and blocks until a signal arrives or polling fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.ValidateForDaemon(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With(logging.String("run_id", uuid.NewString()))

	dependencies := preflight.CheckSystemDeps(signalCtx, cfg)
	logDependencySnapshot(logger, dependencies)
	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs touching this resource will fail"),
		)
	}

	layout := staging.Layout{
		DownloadDir: cfg.Paths.DownloadDir,
		OutputDir:   cfg.Paths.OutputDir,
		ThumbDir:    cfg.Paths.ThumbDir,
	}
	if cfg.Cleanup.SweepOnStartup {
		sweepStale(signalCtx, cfg, logger)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "subembed.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := users.Open(cfg)
	if err != nil {
		logger.Error("open user store", logging.Error(err))
		return err
	}
	defer store.Close()

	client, err := telegram.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect to bot api: %w", err)
	}

	notifier := notifications.NewService(cfg)
	sessions := session.NewMemoryStore()
	handler := bot.NewHandler(bot.Options{
		Admins:           cfg.Telegram.Admins,
		LogChannel:       cfg.Telegram.LogChannel,
		MaxVideoBytes:    cfg.Limits.MaxVideoBytes,
		MaxSubtitleBytes: cfg.Limits.MaxSubtitleBytes,
		ProgressInterval: cfg.ProgressInterval(),
		ReportProgress:   cfg.Remux.ReportProgress,
	}, bot.Deps{
		Sessions:  sessions,
		Layout:    layout,
		Messenger: client,
		Fetcher:   client,
		Users:     store,
		Notifier:  notifier,
		Builder: remux.NewBuilder(remux.Options{
			Binary:       cfg.Remux.FFmpegBinary,
			MuxQueueSize: cfg.Remux.MuxQueueSize,
			ProgressPipe: cfg.Remux.ReportProgress,
		}, logger),
		Runner:    remux.NewExecutor(cfg.RemuxTimeout(), cfg.Remux.StderrTailLines, logger),
		Inspector: ffprobe.NewInspector(cfg.Remux.FFprobeBinary, cfg.ProbeTimeout(), logger),
		Logger:    logger,
	})
	// Handler cancellation is owned by the dispatcher, which daemon.Stop closes.
	dispatcher := bot.NewDispatcher(context.WithoutCancel(signalCtx), handler, bot.DefaultMailboxSize, logger)

	d, err := daemon.New(cfg, daemon.Options{
		Version:      opts.Version,
		Layout:       layout,
		Sessions:     sessions,
		Dispatcher:   dispatcher,
		Poller:       client,
		Dependencies: dependencies,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	logger.Info("bot ready",
		logging.String(logging.FieldEventType, "bot_ready"),
		logging.String("username", client.Username()),
		logging.Int("admins", len(cfg.Telegram.Admins)),
		logging.String("status_address", d.StatusAddr()),
	)
	if err := notifier.NotifyDaemonStarted(signalCtx, opts.Version); err != nil {
		logger.Debug("startup notification failed", logging.Error(err))
	}

	select {
	case <-signalCtx.Done():
		logger.Info("subembed daemon shutting down")
		return nil
	case <-d.Done():
		if err := d.Err(); err != nil {
			return fmt.Errorf("polling stopped: %w", err)
		}
		return nil
	}
}

func sweepStale(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	var result staging.CleanStaleResult
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.OutputDir} {
		result.Merge(staging.CleanStale(ctx, dir, cfg.StaleAge(), logger))
	}
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		return
	}
	logger.Info("startup sweep removed stale artifacts",
		logging.String(logging.FieldEventType, "startup_sweep"),
		logging.Int("removed", len(result.Removed)),
		logging.String("freed", humanize.IBytes(uint64(result.Bytes))),
		logging.Int("errors", len(result.Errors)),
	)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	attrs := []slog.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(status.Name)+"_available", status.Available),
			logging.String(strings.ToLower(status.Name)+"_binary", status.Path),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
