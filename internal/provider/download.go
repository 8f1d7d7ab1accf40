// File: internal/provider/download.go
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	downloadAttempts = 3
	// Anything under a kilobyte is a tracking pixel or an error page, not a
	// generated asset.
	minAssetSize = 1024
)

// Downloader fetches generated assets over plain HTTP. The default client
// follows redirects, which the provider CDNs rely on.
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

// NewDownloader builds a Downloader with a bounded per-request timeout.
func NewDownloader(timeout time.Duration, logger *zap.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("download"),
	}
}

// Fetch downloads url into dir as <provider>-gen-<unixms><ext>, retrying
// transient failures and rejecting suspiciously small payloads.
func (d *Downloader) Fetch(ctx context.Context, url, dir, providerName string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}

	dest := filepath.Join(dir, fmt.Sprintf("%s-gen-%d%s",
		providerName, time.Now().UnixMilli(), extensionFor(url)))

	var lastErr error
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		size, err := d.fetchOnce(ctx, url, dest)
		if err == nil && size >= minAssetSize {
			d.logger.Info("Asset downloaded.",
				zap.String("provider", providerName),
				zap.String("path", dest),
				zap.Int64("bytes", size))
			return dest, nil
		}
		if err == nil {
			err = fmt.Errorf("downloaded file is only %d bytes", size)
			os.Remove(dest)
		}

		lastErr = err
		d.logger.Warn("Download attempt failed.",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return "", fmt.Errorf("failed to download %q after %d attempts: %w",
		url, downloadAttempts, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("failed to write %q: %w", dest, err)
	}
	return n, nil
}

func extensionFor(url string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	switch ext := strings.ToLower(filepath.Ext(trimmed)); ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".mp4", ".webm":
		return ext
	default:
		return ".png"
	}
}
