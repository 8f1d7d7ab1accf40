package provider

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAssetBytes() []byte {
	return bytes.Repeat([]byte("generated-pixels"), 256)
}

func TestDownloaderFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(testAssetBytes())
	}))
	defer server.Close()

	d := NewDownloader(10*time.Second, zap.NewNop())
	dir := t.TempDir()

	path, err := d.Fetch(context.Background(), server.URL+"/gen/result.png", dir, "grok")
	require.NoError(t, err)
	assert.Contains(t, path, "grok-gen-")
	assert.Contains(t, path, ".png")
	assert.FileExists(t, path)
}

func TestDownloaderFetch_FollowsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final.png", http.StatusFound)
			return
		}
		w.Write(testAssetBytes())
	}))
	defer server.Close()

	d := NewDownloader(10*time.Second, zap.NewNop())
	path, err := d.Fetch(context.Background(), server.URL+"/redirect", t.TempDir(), "zai")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestDownloaderFetch_RetriesUndersizedPayload(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.Write([]byte("tiny"))
			return
		}
		w.Write(testAssetBytes())
	}))
	defer server.Close()

	d := NewDownloader(10*time.Second, zap.NewNop())
	path, err := d.Fetch(context.Background(), server.URL+"/a.png", t.TempDir(), "grok")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDownloaderFetch_GivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDownloader(10*time.Second, zap.NewNop())
	_, err := d.Fetch(context.Background(), server.URL+"/a.png", t.TempDir(), "grok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x/a.png", ".png"},
		{"https://x/a.jpg?width=512", ".jpg"},
		{"https://x/a.mp4#t=0", ".mp4"},
		{"https://x/a.webp", ".webp"},
		{"https://x/asset", ".png"},
		{"https://x/a.exe", ".png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extensionFor(tt.url), tt.url)
	}
}
