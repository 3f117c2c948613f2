package preflight

import (
	"context"
	"fmt"

	"subembed/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for the given config: working
// directories, free space for downloads, and the ffmpeg toolchain.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Thumbnail directory", cfg.Paths.ThumbDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}

	// A remux needs room for the download plus the output copy.
	minFree := uint64(0)
	if cfg.Limits.MaxVideoBytes > 0 {
		minFree = uint64(cfg.Limits.MaxVideoBytes)
	}
	results = append(results, CheckDiskSpace("Download disk", cfg.Paths.DownloadDir, minFree))

	for _, dep := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: dep.Name, Passed: dep.Available || dep.Optional}
		switch {
		case dep.Available && dep.Version != "":
			result.Detail = fmt.Sprintf("%s (%s)", dep.Path, dep.Version)
		case dep.Available:
			result.Detail = dep.Path
		default:
			result.Detail = dep.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed filters the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
