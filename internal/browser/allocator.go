// File: internal/browser/allocator.go
package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/outfitlab/tryon-cli/internal/config"
)

// DefaultAllocatorOptions builds the Chrome launch options for a disguised
// automation session. The flag set intentionally diverges from chromedp's
// defaults: anything that advertises automation is stripped.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	}

	if cfg.Headless {
		// The "new" headless mode shares the rendering path with headful
		// Chrome, which defeats most headless-detection heuristics.
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(trimFlagPrefix(arg), true))
	}

	return opts
}

func trimFlagPrefix(arg string) string {
	for len(arg) > 0 && arg[0] == '-' {
		arg = arg[1:]
	}
	return arg
}
