package uploader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/config"
	"github.com/outfitlab/tryon-cli/internal/provider"
)

func uploadConfig(endpoint string) config.UploadConfig {
	return config.UploadConfig{
		Endpoint:      endpoint,
		APIKey:        "secret-key",
		RatePerMinute: 6000, // effectively unthrottled for tests
		Timeout:       10 * time.Second,
	}
}

func tmpAsset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gen.png")
	require.NoError(t, os.WriteFile(path, []byte("image-bytes"), 0o644))
	return path
}

func TestHTTPHostUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "gen.png", header.Filename)

		w.Write([]byte(`{"url": "https://host/abc.png", "delete_url": "https://host/abc/delete"}`))
	}))
	defer server.Close()

	host, err := NewHTTPHost(uploadConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	asset, err := host.Upload(context.Background(), tmpAsset(t))
	require.NoError(t, err)
	assert.Equal(t, "https://host/abc.png", asset.URL)
	assert.Equal(t, "https://host/abc/delete", asset.DeleteURL)
}

func TestHTTPHostUpload_NestedDataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"url": "https://host/nested.png"}}`))
	}))
	defer server.Close()

	host, err := NewHTTPHost(uploadConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	asset, err := host.Upload(context.Background(), tmpAsset(t))
	require.NoError(t, err)
	assert.Equal(t, "https://host/nested.png", asset.URL)
}

func TestHTTPHostUpload_RejectionIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	host, err := NewHTTPHost(uploadConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = host.Upload(context.Background(), tmpAsset(t))
	require.Error(t, err)
	assert.Equal(t, provider.KindUploadFailure, provider.KindOf(err))

	var ufe *provider.UploadFailureError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, http.StatusForbidden, ufe.StatusCode)
	assert.Contains(t, ufe.Message, "quota exceeded")
}

func TestHTTPHostUpload_EmptyResponseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	host, err := NewHTTPHost(uploadConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = host.Upload(context.Background(), tmpAsset(t))
	assert.Equal(t, provider.KindUploadFailure, provider.KindOf(err))
}

func TestNewHTTPHost_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPHost(config.UploadConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestFuncHost(t *testing.T) {
	var got string
	host := FuncHost(func(_ context.Context, localPath string) (*HostedAsset, error) {
		got = localPath
		return &HostedAsset{URL: "https://fake/x.png", Provider: "fake"}, nil
	})

	asset, err := host.Upload(context.Background(), "/tmp/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.png", got)
	assert.Equal(t, "https://fake/x.png", asset.URL)
}
