package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Layout names every per-user artifact on disk. Names are namespaced by the
// user ID so concurrent users never collide.
type Layout struct {
	DownloadDir string
	OutputDir   string
	ThumbDir    string
}

func userPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + "_"
}

// VideoPath is where an uploaded video is downloaded to.
func (l Layout) VideoPath(userID int64, name string) string {
	return filepath.Join(l.DownloadDir, userPrefix(userID)+SanitizeFileName(name, "video"))
}

// SubtitlePath is where the n-th subtitle upload is stored.
func (l Layout) SubtitlePath(userID int64, n int, name string) string {
	file := fmt.Sprintf("%ssub_%d_%s", userPrefix(userID), n, SanitizeFileName(name, "subtitle.srt"))
	return filepath.Join(l.DownloadDir, file)
}

// VideoThumbPath holds the thumbnail Telegram attached to the uploaded video.
func (l Layout) VideoThumbPath(userID int64) string {
	return filepath.Join(l.DownloadDir, userPrefix(userID)+"thumb.jpg")
}

// OutputPath is the remux destination. It keeps the video's name so the
// container family is preserved.
func (l Layout) OutputPath(userID int64, videoName string) string {
	return filepath.Join(l.OutputDir, userPrefix(userID)+SanitizeFileName(videoName, "video.mkv"))
}

// CustomThumbPath is the persistent thumbnail chosen by the user.
func (l Layout) CustomThumbPath(userID int64) string {
	return filepath.Join(l.ThumbDir, strconv.FormatInt(userID, 10)+".jpg")
}

// EnsureDirs creates the layout directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.DownloadDir, l.OutputDir, l.ThumbDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// CleanUser deletes every working file of one user from the download and
// output directories. Files already gone are ignored, so calling it twice is
// harmless. The persistent custom thumbnail is kept.
func (l Layout) CleanUser(userID int64) ([]string, error) {
	prefix := userPrefix(userID)
	var (
		removed []string
		errs    []error
	)
	for _, dir := range []string{l.DownloadDir, l.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			removed = append(removed, path)
		}
	}
	return removed, errors.Join(errs...)
}

// DirUsage summarizes the regular files directly inside a directory.
type DirUsage struct {
	Name  string
	Path  string
	Files int
	Bytes int64
}

// Usage reports file counts for the download and output directories.
func (l Layout) Usage() []DirUsage {
	download := CountFiles(l.DownloadDir)
	download.Name = "download_dir"
	output := CountFiles(l.OutputDir)
	output.Name = "output_dir"
	return []DirUsage{download, output}
}

// CountFiles counts regular files in dir. A missing directory counts as empty.
func CountFiles(dir string) DirUsage {
	usage := DirUsage{Path: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return usage
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		usage.Files++
		if info, err := entry.Info(); err == nil {
			usage.Bytes += info.Size()
		}
	}
	return usage
}
