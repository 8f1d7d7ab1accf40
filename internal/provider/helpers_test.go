package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/config"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// fakeClock advances virtual time on every Sleep.
type fakeClock struct {
	now     time.Time
	elapsed time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	c.elapsed += d
	return nil
}

func testProviderConfig() config.ProvidersConfig {
	return config.ProvidersConfig{
		PollInterval:      time.Second,
		MediaPollInterval: 2 * time.Second,
		ResponseMaxWait:   5 * time.Minute,
		MediaMaxWait:      3 * time.Minute,
		StabilityCount:    3,
		MediaStability:    2,
		ManualLoginWait:   time.Minute,
		LoginCheckEvery:   5 * time.Second,
		MinImageWidth:     256,
		MinImageHeight:    256,
		SettleDelay:       time.Second,
	}
}

func sampleCapturedState() sessionstore.CapturedState {
	return sessionstore.CapturedState{
		Cookies: []sessionstore.Cookie{
			{Name: "sso", Value: "tok", Domain: ".grok.com", Path: "/"},
			{Name: "cf_clearance", Value: "clear", Domain: ".grok.com", Path: "/"},
			{Name: "ga_tracking", Value: "noise", Domain: ".grok.com", Path: "/"},
		},
		LocalStorage: map[string]string{"theme": "dark"},
	}
}

// tmpImage writes a placeholder input file and returns its path; upload
// steps stat their inputs before attaching them.
func tmpImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o644))
	return path
}

func testDeps(t *testing.T, page *fakePage, clock *fakeClock) Deps {
	t.Helper()
	store, err := sessionstore.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return Deps{
		Page:   page,
		Clock:  clock,
		Store:  store,
		Cfg:    testProviderConfig(),
		Logger: zap.NewNop(),
	}
}
