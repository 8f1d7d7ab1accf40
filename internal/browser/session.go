// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/config"
	"github.com/outfitlab/tryon-cli/internal/browser/stealth"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session is a disguised browser tab. It owns the allocator and tab contexts
// and exposes the Page surface the provider recipes are written against.
type Session struct {
	id     string
	ctx    context.Context
	logger *zap.Logger
	cfg    config.BrowserConfig
	clock  Clock

	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

var _ StatefulPage = (*Session)(nil)

// Launch starts a Chrome instance with the stealth flag set, opens a tab,
// applies the persona evasions, and sets the viewport. The returned Session
// must be Closed by the caller.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	sessionLogger := logger.Named("browser").With(zap.String("session_id", sessionID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		logger:      sessionLogger,
		cfg:         cfg,
		clock:       SystemClock(),
		allocCancel: allocCancel,
		tabCancel:   tabCancel,
	}

	// First Run establishes the browser process and CDP connection.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	persona := stealth.DefaultPersona
	if cfg.UserAgent != "" {
		persona.UserAgent = cfg.UserAgent
	}

	tasks := stealth.Apply(persona, sessionLogger)
	tasks = append(tasks, emulation.SetDeviceMetricsOverride(
		int64(cfg.ViewportWidth), int64(cfg.ViewportHeight), 1.0, false))

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to apply session initialization tasks: %w", err)
	}

	sessionLogger.Info("Browser session launched.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight))
	return s, nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string { return s.id }

// Close tears down the tab and the browser process. It is safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// runActions executes chromedp actions under both the session lifetime and the
// caller's deadline.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.runActions(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %q: %w", url, err)
	}
	return s.slowMo(ctx)
}

// Reload reloads the current document.
func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := s.runActions(navCtx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return s.slowMo(ctx)
}

// URL returns the current document location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.runActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// WaitVisible blocks until the selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %q not visible within %v: %w", selector, timeout, err)
	}
	return nil
}

// Exists reports whether the selector matches anything right now.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`!!document.querySelector(%s)`, jsString(selector))
	if err := s.runActions(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("failed to probe selector %q: %w", selector, err)
	}
	return found, nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.runActions(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return s.slowMo(ctx)
}

// TypeText focuses the element and types the text one key at a time with a
// randomized 25-75ms inter-key delay. Uniform machine-speed input is a
// detection signal on every supported provider.
func (s *Session) TypeText(ctx context.Context, selector, text string) error {
	if err := s.runActions(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to focus %q for typing: %w", selector, err)
	}

	for _, r := range text {
		if err := s.runActions(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("failed to type into %q: %w", selector, err)
		}
		delay := 25*time.Millisecond + time.Duration(rand.Intn(50))*time.Millisecond
		if err := s.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// PressEnter sends an Enter keypress to the currently focused element.
func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.runActions(ctx, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("failed to press enter: %w", err)
	}
	return nil
}

// UploadFile attaches a local file to a file input.
func (s *Session) UploadFile(ctx context.Context, selector, path string) error {
	if err := s.runActions(ctx,
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to attach %q to %q: %w", path, selector, err)
	}
	return s.slowMo(ctx)
}

// Text returns the inner text of the first matching element, or "" when the
// selector matches nothing.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	expr := fmt.Sprintf(`(document.querySelector(%s)?.innerText) || ""`, jsString(selector))
	if err := s.runActions(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return out, nil
}

// Evaluate runs a JS expression in the page. A nil out discards the result.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.runActions(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("failed to evaluate expression: %w", err)
	}
	return nil
}

// Screenshot captures the viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.runActions(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// SetCookies injects persisted cookies into the browser. The providers set
// most of their cookies host-only, so injection must happen after the first
// navigation establishes the document origin; callers reload afterwards so
// page scripts see the authenticated state.
func (s *Session) SetCookies(ctx context.Context, cookies []sessionstore.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	action := chromedp.ActionFunc(func(c context.Context) error {
		for _, ck := range cookies {
			p := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(ck.Path).
				WithSecure(ck.Secure).
				WithHTTPOnly(ck.HTTPOnly)
			if ck.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
				p = p.WithExpires(&exp)
			}
			if ss := parseSameSite(ck.SameSite); ss != "" {
				p = p.WithSameSite(ss)
			}
			if err := p.Do(c); err != nil {
				s.logger.Warn("Failed to set cookie.",
					zap.String("cookie", ck.Name), zap.Error(err))
			}
		}
		return nil
	})

	if err := s.runActions(ctx, action); err != nil {
		return fmt.Errorf("failed to inject cookies: %w", err)
	}
	s.logger.Debug("Cookies injected.", zap.Int("count", len(cookies)))
	return nil
}

// SetLocalStorage writes the persisted localStorage entries into the current
// origin. Must run after navigation for the same reason as SetCookies.
func (s *Session) SetLocalStorage(ctx context.Context, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode localStorage payload: %w", err)
	}

	expr := fmt.Sprintf(`(function(items) {
		for (const k in items) {
			try { localStorage.setItem(k, items[k]); } catch (e) {}
		}
		return true;
	})(%s)`, string(encoded))

	var ok bool
	if err := s.runActions(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("failed to restore localStorage: %w", err)
	}
	return nil
}

// CaptureState lifts cookies and localStorage out of the live tab for
// persistence.
func (s *Session) CaptureState(ctx context.Context) (sessionstore.CapturedState, error) {
	state := sessionstore.CapturedState{LocalStorage: map[string]string{}}

	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		cookies, err := network.GetCookies().Do(c)
		if err != nil {
			return fmt.Errorf("failed to get cookies via CDP: %w", err)
		}
		for _, ck := range cookies {
			state.Cookies = append(state.Cookies, sessionstore.Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: string(ck.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return state, err
	}

	const jsWalkLocalStorage = `(function() {
		let items = {};
		try {
			for (let i = 0; i < localStorage.length; i++) {
				const k = localStorage.key(i);
				if (k) { items[k] = localStorage.getItem(k); }
			}
		} catch (e) { /* storage disabled on this origin */ }
		return items;
	})()`

	if err := s.runActions(ctx, chromedp.Evaluate(jsWalkLocalStorage, &state.LocalStorage)); err != nil {
		s.logger.Warn("Could not capture localStorage.", zap.Error(err))
	}

	return state, nil
}

func (s *Session) slowMo(ctx context.Context) error {
	if s.cfg.SlowMo <= 0 {
		return nil
	}
	return s.clock.Sleep(ctx, s.cfg.SlowMo)
}

func parseSameSite(v string) network.CookieSameSite {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

// jsString encodes s as a JS string literal safe to embed in an expression.
func jsString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(encoded)
}
