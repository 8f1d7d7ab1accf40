// File: internal/uploader/uploader.go
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/outfitlab/tryon-cli/internal/config"
	"github.com/outfitlab/tryon-cli/internal/provider"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HostedAsset is the public reference an asset host returns for an upload.
type HostedAsset struct {
	URL       string `json:"url"`
	DeleteURL string `json:"deleteUrl,omitempty"`
	Provider  string `json:"provider"`
}

// Host uploads a local file to an external asset host.
type Host interface {
	Upload(ctx context.Context, localPath string) (*HostedAsset, error)
}

// FuncHost adapts a function to the Host interface for tests and wiring.
type FuncHost func(ctx context.Context, localPath string) (*HostedAsset, error)

// Upload implements Host.
func (f FuncHost) Upload(ctx context.Context, localPath string) (*HostedAsset, error) {
	return f(ctx, localPath)
}

// HTTPHost posts files as multipart form data to a hosting endpoint. Uploads
// are rate limited client-side; the free hosts ban bursty clients.
type HTTPHost struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewHTTPHost builds an uploader from configuration.
func NewHTTPHost(cfg config.UploadConfig, logger *zap.Logger) (*HTTPHost, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upload.endpoint is not configured")
	}
	perSecond := cfg.RatePerMinute / 60.0
	return &HTTPHost{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:   logger.Named("uploader"),
	}, nil
}

// Upload posts the file and decodes the hosted URL from the response.
func (h *HTTPHost) Upload(ctx context.Context, localPath string) (*HostedAsset, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, contentType, err := h.buildForm(localPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.UploadFailureError{
			Host:       h.endpoint,
			StatusCode: resp.StatusCode,
			Message:    string(payload),
		}
	}

	var decoded struct {
		URL       string `json:"url"`
		DeleteURL string `json:"delete_url"`
		Data      struct {
			URL       string `json:"url"`
			DeleteURL string `json:"delete_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	asset := &HostedAsset{URL: decoded.URL, DeleteURL: decoded.DeleteURL, Provider: "http"}
	if asset.URL == "" {
		asset.URL = decoded.Data.URL
		asset.DeleteURL = decoded.Data.DeleteURL
	}
	if asset.URL == "" {
		return nil, &provider.UploadFailureError{
			Host:       h.endpoint,
			StatusCode: resp.StatusCode,
			Message:    "response carried no asset url",
		}
	}

	h.logger.Info("Asset uploaded.",
		zap.String("file", filepath.Base(localPath)),
		zap.String("url", asset.URL))
	return asset, nil
}

func (h *HTTPHost) buildForm(localPath string) (io.Reader, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %q for upload: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filepath.Base(localPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read %q: %w", localPath, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
