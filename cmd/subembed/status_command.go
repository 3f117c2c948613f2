package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"subembed/internal/config"
	"subembed/internal/deps"
	"subembed/internal/preflight"
	"subembed/internal/users"
)

// liveStatus mirrors the daemon's /status payload.
type liveStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Sessions      int    `json:"sessions"`
	ActiveUsers   int    `json:"active_users"`
}

type statusReport struct {
	Running      bool                 `json:"running"`
	ConfigPath   string               `json:"config_path"`
	Live         *liveStatus          `json:"live,omitempty"`
	Users        users.Stats          `json:"users"`
	Directories  []directoryReport    `json:"directories"`
	Disk         *preflight.DiskStats `json:"disk,omitempty"`
	Dependencies []deps.Status        `json:"dependencies"`
}

type directoryReport struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot, user database and staging status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := collectStatus(cmd.Context(), ctx, cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			printStatus(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func collectStatus(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) (statusReport, error) {
	report := statusReport{
		Running:      daemonRunning(cfg.LockPath()),
		ConfigPath:   ctx.configPath,
		Dependencies: preflight.CheckSystemDeps(cmdCtx, cfg),
	}
	if report.Running && cfg.Status.Enabled {
		report.Live = fetchLiveStatus(cmdCtx, cfg.Status.Bind)
	}

	if err := ctx.withUsers(func(store *users.Store) error {
		stats, err := store.Count(cmdCtx)
		report.Users = stats
		return err
	}); err != nil {
		return report, err
	}

	for _, usage := range ctx.layout().Usage() {
		report.Directories = append(report.Directories, directoryReport{
			Name:  usage.Name,
			Path:  usage.Path,
			Files: usage.Files,
			Bytes: usage.Bytes,
		})
	}
	if stats, err := preflight.DiskUsage(cfg.Paths.DownloadDir); err == nil {
		report.Disk = &stats
	}
	return report, nil
}

// daemonRunning probes the single-instance lock without holding it.
func daemonRunning(lockPath string) bool {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func fetchLiveStatus(ctx context.Context, bind string) *liveStatus {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return nil
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	url := "http://" + net.JoinHostPort(host, port) + "/status"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var live liveStatus
	if err := json.NewDecoder(resp.Body).Decode(&live); err != nil {
		return nil
	}
	return &live
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Bot", color))
	if report.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running", color))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", color))
	}
	if report.Live != nil {
		uptime := time.Duration(report.Live.UptimeSeconds) * time.Second
		fmt.Fprintln(out, renderStatusLine("Uptime", statusInfo, uptime.String(), color))
		fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo,
			fmt.Sprintf("%d open, %d busy", report.Live.Sessions, report.Live.ActiveUsers), color))
	}
	fmt.Fprintln(out, renderStatusLine("Users", statusInfo,
		fmt.Sprintf("%d total, %d banned", report.Users.Total, report.Users.Banned), color))
	if report.Disk != nil {
		kind := statusOK
		if report.Disk.UsedPercent >= 90 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Disk", kind,
			fmt.Sprintf("%s free (%.1f%% used)", humanize.IBytes(report.Disk.FreeBytes), report.Disk.UsedPercent), color))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Staging", color))
	dirRows := make([][]string, 0, len(report.Directories))
	for _, dir := range report.Directories {
		dirRows = append(dirRows, []string{dir.Name, dir.Path, strconv.Itoa(dir.Files), humanize.IBytes(uint64(dir.Bytes))})
	}
	fmt.Fprintln(out, renderTable([]string{"Directory", "Path", "Files", "Size"}, dirRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Dependencies", color))
	depRows := make([][]string, 0, len(report.Dependencies))
	for _, dep := range report.Dependencies {
		state := "missing"
		if dep.Available {
			state = "ok"
		}
		detail := dep.Version
		if !dep.Available {
			detail = dep.Detail
		}
		depRows = append(depRows, []string{dep.Name, state, strings.TrimSpace(detail)})
	}
	fmt.Fprintln(out, renderTable([]string{"Binary", "State", "Detail"}, depRows, nil))
}
