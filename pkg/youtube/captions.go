package youtube

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CaptionDownloader fetches caption tracks with yt-dlp. The Data API only
// exposes caption downloads to the video owner, so a subprocess it is.
type CaptionDownloader struct {
	ytDlpPath string
	dir       string
	timeout   time.Duration
	logger    *zap.Logger
}

// CaptionOption configures a CaptionDownloader.
type CaptionOption func(*CaptionDownloader)

// WithYtDlpPath overrides the yt-dlp binary path.
func WithYtDlpPath(path string) CaptionOption {
	return func(d *CaptionDownloader) {
		if path != "" {
			d.ytDlpPath = path
		}
	}
}

// WithDownloadTimeout overrides the per-video subprocess timeout.
func WithDownloadTimeout(t time.Duration) CaptionOption {
	return func(d *CaptionDownloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewCaptionDownloader creates a downloader writing caption files under dir.
func NewCaptionDownloader(dir string, opts ...CaptionOption) (*CaptionDownloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "youtube: create caption dir %s", dir)
	}

	d := &CaptionDownloader{
		ytDlpPath: "yt-dlp",
		dir:       dir,
		timeout:   2 * time.Minute,
		logger:    zap.L().With(zap.String("component", "captions")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Download fetches English captions for the video and returns the path of the
// best caption file, or ok=false when none could be fetched. An existing file
// from a previous run is reused.
func (d *CaptionDownloader) Download(ctx context.Context, videoID string) (string, bool) {
	if path, ok := d.findCaptionFile(videoID); ok {
		return path, true
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outTemplate := filepath.Join(d.dir, "%(id)s.%(ext)s")
	cmd := exec.CommandContext(ctx, d.ytDlpPath,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*,en",
		"--sub-format", "vtt/srt/best",
		"-o", outTemplate,
		"https://www.youtube.com/watch?v="+videoID,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		d.logger.Debug("yt-dlp failed",
			zap.String("video_id", videoID),
			zap.String("output", truncate(string(out), 500)),
			zap.Error(err))
		return "", false
	}

	return d.findCaptionFile(videoID)
}

// findCaptionFile picks the best caption file yt-dlp produced for the video.
// Plain English tracks beat regional variants, VTT beats SRT.
func (d *CaptionDownloader) findCaptionFile(videoID string) (string, bool) {
	preferred := []string{
		videoID + ".en.vtt",
		videoID + ".en.srt",
	}
	for _, name := range preferred {
		path := filepath.Join(d.dir, name)
		if fileExists(path) {
			return path, true
		}
	}

	matches, err := filepath.Glob(filepath.Join(d.dir, videoID+".*"))
	if err != nil {
		return "", false
	}

	var srtFallback string
	for _, path := range matches {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".vtt":
			return path, true
		case ".srt":
			if srtFallback == "" {
				srtFallback = path
			}
		}
	}
	if srtFallback != "" {
		return srtFallback, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
