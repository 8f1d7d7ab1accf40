package browser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/outfitlab/tryon-cli/internal/config"
)

// hasOption checks for an allocator option by inspecting its representation.
// Options are opaque closures, so they are applied to an allocator (no browser
// is launched) and the resulting state is inspected. Pragmatic, but it keeps
// these tests free of a browser dependency.
func hasOption(opts []chromedp.ExecAllocatorOption, substring string) bool {
	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()
	return strings.Contains(fmt.Sprintf("%#v", chromedp.FromContext(ctx).Allocator), substring)
}

func TestDefaultAllocatorOptions(t *testing.T) {
	base := config.BrowserConfig{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}

	t.Run("strips automation markers", func(t *testing.T) {
		opts := DefaultAllocatorOptions(base)
		assert.True(t, hasOption(opts, "AutomationControlled"))
		assert.True(t, hasOption(opts, "disable-infobars"))
	})

	t.Run("headless uses the new mode", func(t *testing.T) {
		opts := DefaultAllocatorOptions(base)
		assert.True(t, hasOption(opts, "headless"))
	})

	t.Run("custom args are forwarded", func(t *testing.T) {
		cfg := base
		cfg.Args = []string{"--proxy-server=localhost:8080", "disable-gpu"}
		opts := DefaultAllocatorOptions(cfg)
		assert.True(t, hasOption(opts, "proxy-server"))
		assert.True(t, hasOption(opts, "disable-gpu"))
	})

	t.Run("user agent override", func(t *testing.T) {
		cfg := base
		cfg.UserAgent = "TryOnTestAgent/1.0"
		opts := DefaultAllocatorOptions(cfg)
		assert.True(t, hasOption(opts, "TryOnTestAgent"))
	})
}

func TestTrimFlagPrefix(t *testing.T) {
	assert.Equal(t, "disable-gpu", trimFlagPrefix("--disable-gpu"))
	assert.Equal(t, "disable-gpu", trimFlagPrefix("-disable-gpu"))
	assert.Equal(t, "disable-gpu", trimFlagPrefix("disable-gpu"))
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, network.CookieSameSiteStrict, parseSameSite("Strict"))
	assert.Equal(t, network.CookieSameSiteLax, parseSameSite("lax"))
	assert.Equal(t, network.CookieSameSiteNone, parseSameSite("None"))
	assert.Equal(t, network.CookieSameSite(""), parseSameSite("unspecified"))
	assert.Equal(t, network.CookieSameSite(""), parseSameSite(""))
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"with \"quotes\""`, jsString(`with "quotes"`))
	// Selector injection must not break out of the literal.
	encoded := jsString(`a"); alert(1); ("`)
	assert.True(t, strings.HasPrefix(encoded, `"`))
	assert.True(t, strings.HasSuffix(encoded, `"`))
	assert.Contains(t, encoded, `\"`)
}
