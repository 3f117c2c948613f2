package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subembed/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestDiskUsageAndSpaceCheck(t *testing.T) {
	dir := t.TempDir()
	stats, err := DiskUsage(dir)
	if err != nil {
		t.Fatalf("DiskUsage: %v", err)
	}
	if stats.TotalBytes == 0 || stats.UsedPercent < 0 || stats.UsedPercent > 100 {
		t.Fatalf("implausible stats: %+v", stats)
	}

	if r := CheckDiskSpace("disk", dir, 0); !r.Passed {
		t.Fatalf("expected pass with zero minimum: %s", r.Detail)
	}
	if r := CheckDiskSpace("disk", dir, stats.TotalBytes+1); r.Passed {
		t.Fatal("expected failure when minimum exceeds filesystem size")
	}
	if r := CheckDiskSpace("disk", filepath.Join(dir, "missing"), 0); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "dl")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.ThumbDir = filepath.Join(base, "thumb")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Limits.MaxVideoBytes = 1
	cfg.Remux.FFmpegBinary = "definitely-missing-ffmpeg"

	bin := filepath.Join(base, "ffprobe")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho 'ffprobe version 7.0'\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Remux.FFprobeBinary = bin
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "FFmpeg" {
		t.Fatalf("expected only FFmpeg to fail, got %+v", failed)
	}
	for _, r := range results {
		if r.Name == "FFprobe" && !strings.Contains(r.Detail, "7.0") {
			t.Fatalf("expected ffprobe version in detail, got %q", r.Detail)
		}
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
