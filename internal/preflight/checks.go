package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"subembed/internal/config"
	"subembed/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// DiskStats describes the filesystem backing a path.
type DiskStats struct {
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// FreeGB reports free space in gigabytes.
func (d DiskStats) FreeGB() float64 {
	return float64(d.FreeBytes) / (1 << 30)
}

// DiskUsage reads filesystem statistics for path.
func DiskUsage(path string) (DiskStats, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return DiskStats{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(fs.Bsize)
	stats := DiskStats{
		TotalBytes: fs.Blocks * bsize,
		FreeBytes:  fs.Bavail * bsize,
	}
	if stats.TotalBytes > 0 {
		used := fs.Blocks - fs.Bfree
		stats.UsedPercent = float64(used) / float64(fs.Blocks) * 100
	}
	return stats, nil
}

// CheckDiskSpace passes when the filesystem holding path has at least
// minFree bytes available.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	stats, err := DiskUsage(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%s free (%.1f%% used)", humanize.IBytes(stats.FreeBytes), stats.UsedPercent)
	if stats.FreeBytes < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s, need %s", detail, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the CLI status command use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Remux.FFmpegBinary,
			Description: "Required for embedding subtitles",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Remux.FFprobeBinary,
			Description: "Used to verify embedded subtitle tracks",
			VersionArgs: []string{"-version"},
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}
