package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subembed/internal/bot"
	"subembed/internal/progress"
)

// Fetch implements bot.Fetcher. The file is written to dest+".part" and
// renamed once complete, so dest never holds a partial download.
func (c *Client) Fetch(ctx context.Context, fileID, dest string, reporter progress.Reporter) (int64, error) {
	if reporter == nil {
		reporter = progress.Nop
	}
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("get file %s: %w", fileID, err)
	}
	total := int64(file.FileSize)

	// A local Bot API server returns the file's path on its own disk.
	if filepath.IsAbs(file.FilePath) {
		src, err := os.Open(file.FilePath)
		if err != nil {
			return 0, fmt.Errorf("open local file: %w", err)
		}
		defer src.Close()
		return writeFile(ctx, dest, src, total, reporter)
	}

	url := fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", file.FilePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %s", file.FilePath, resp.Status)
	}
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}
	return writeFile(ctx, dest, resp.Body, total, reporter)
}

func writeFile(ctx context.Context, dest string, r io.Reader, total int64, reporter progress.Reporter) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create download dir: %w", err)
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}
	n, copyErr := io.Copy(f, newProgressReader(ctx, r, total, reporter))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("finalize %s: %w", dest, err)
	}
	return n, nil
}

// Deliver implements bot.Messenger by uploading the produced file as a video
// or a document.
func (c *Client) Deliver(ctx context.Context, chatID int64, d bot.Deliverable, reporter progress.Reporter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	size := d.Size
	if size <= 0 {
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
	}
	payload := tgbotapi.FileReader{Name: d.FileName, Reader: newProgressReader(ctx, f, size, reporter)}

	if _, err := c.api.Send(deliveryConfig(chatID, d, payload)); err != nil {
		return fmt.Errorf("upload %s: %w", d.FileName, err)
	}
	return nil
}

func deliveryConfig(chatID int64, d bot.Deliverable, payload tgbotapi.RequestFileData) tgbotapi.Chattable {
	caption := truncateCaption(d.Caption)
	if d.AsVideo {
		video := tgbotapi.NewVideo(chatID, payload)
		video.Caption = caption
		video.SupportsStreaming = true
		if d.Thumbnail != "" {
			video.Thumb = tgbotapi.FilePath(d.Thumbnail)
		}
		return video
	}
	doc := tgbotapi.NewDocument(chatID, payload)
	doc.Caption = caption
	if d.Thumbnail != "" {
		doc.Thumb = tgbotapi.FilePath(d.Thumbnail)
	}
	return doc
}

// progressReader reports bytes read and stops once ctx is cancelled.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	total    int64
	read     int64
	reporter progress.Reporter
}

func newProgressReader(ctx context.Context, r io.Reader, total int64, reporter progress.Reporter) *progressReader {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &progressReader{ctx: ctx, r: r, total: total, reporter: reporter}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.reporter.Report(progress.Update{Current: p.read, Total: p.total, Unit: progress.Bytes})
	}
	return n, err
}
