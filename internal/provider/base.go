// File: internal/provider/base.go
package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/browser"
	"github.com/outfitlab/tryon-cli/internal/config"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// Deps is everything an adapter needs besides its recipe data. Interactive
// reports whether a human can see the browser window; it gates the manual
// login fallback on login-required providers.
type Deps struct {
	Page        browser.StatefulPage
	Clock       browser.Clock
	Store       *sessionstore.Store
	Cfg         config.ProvidersConfig
	Logger      *zap.Logger
	Interactive bool
	// CloseFn tears down the underlying browser session.
	CloseFn func()
}

// adapter carries the state shared by every provider recipe.
type adapter struct {
	name        string
	page        browser.StatefulPage
	clock       browser.Clock
	store       *sessionstore.Store
	cfg         config.ProvidersConfig
	logger      *zap.Logger
	interactive bool
	downloader  *Downloader

	closeFn   func()
	closeOnce sync.Once
}

func newAdapter(name string, deps Deps) adapter {
	logger := deps.Logger.Named(name)
	clock := deps.Clock
	if clock == nil {
		clock = browser.SystemClock()
	}
	return adapter{
		name:        name,
		page:        deps.Page,
		clock:       clock,
		store:       deps.Store,
		cfg:         deps.Cfg,
		logger:      logger,
		interactive: deps.Interactive,
		downloader:  NewDownloader(2*time.Minute, logger),
		closeFn:     deps.CloseFn,
	}
}

// Close tears down the underlying browser session. Idempotent.
func (a *adapter) Close() {
	a.closeOnce.Do(func() {
		if a.closeFn != nil {
			a.closeFn()
		}
	})
}

// essentialCookies filters a persisted cookie set down to the names that
// actually carry authentication; injecting everything trips consent banners
// and stale analytics state on some providers.
func essentialCookies(cookies []sessionstore.Cookie, names []string) []sessionstore.Cookie {
	if len(names) == 0 {
		return cookies
	}
	keep := make([]sessionstore.Cookie, 0, len(cookies))
	for _, c := range cookies {
		for _, n := range names {
			if strings.Contains(strings.ToLower(c.Name), n) {
				keep = append(keep, c)
				break
			}
		}
	}
	return keep
}

// injectSession seeds the page with a stored session, if one exists, and
// reloads so page scripts see the authenticated state. Cookies can only be
// installed after the first navigation establishes the document origin.
func (a *adapter) injectSession(ctx context.Context, cookieFilter []string) bool {
	if a.store == nil {
		return false
	}
	ps := a.store.Load(a.name)
	if ps == nil {
		return false
	}

	cookies := essentialCookies(ps.Cookies, cookieFilter)
	if err := a.page.SetCookies(ctx, cookies); err != nil {
		a.logger.Warn("Cookie injection failed.", zap.Error(err))
		return false
	}
	if err := a.page.SetLocalStorage(ctx, ps.LocalStorage); err != nil {
		a.logger.Warn("localStorage injection failed.", zap.Error(err))
	}
	if err := a.page.Reload(ctx); err != nil {
		a.logger.Warn("Reload after session injection failed.", zap.Error(err))
		return false
	}

	a.logger.Info("Stored session injected.",
		zap.Int("cookies", len(cookies)),
		zap.Time("saved_at", ps.SavedAt))
	return true
}

// saveSession captures the live authentication state and persists it under
// the adapter's provider name.
func (a *adapter) saveSession(ctx context.Context) {
	if a.store == nil {
		return
	}
	state, err := a.page.CaptureState(ctx)
	if err != nil {
		a.logger.Warn("Could not capture session state.", zap.Error(err))
		return
	}
	if err := a.store.Save(a.name, state); err != nil {
		a.logger.Warn("Could not persist session.", zap.Error(err))
	}
}

// diagnose takes a best-effort screenshot for post-mortem debugging. It never
// returns an error so it cannot mask the failure being diagnosed.
func (a *adapter) diagnose(ctx context.Context, op string) {
	shot, err := a.page.Screenshot(ctx)
	if err != nil || len(shot) == 0 {
		return
	}
	path := filepath.Join(os.TempDir(),
		fmt.Sprintf("tryon-%s-%s-%d.png", a.name, op, time.Now().UnixMilli()))
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		return
	}
	a.logger.Info("Diagnostic screenshot written.",
		zap.String("op", op), zap.String("path", path))
}

// settle pauses for the configured settle delay, letting client-side
// frameworks finish reacting to the previous step.
func (a *adapter) settle(ctx context.Context) error {
	return a.clock.Sleep(ctx, a.cfg.SettleDelay)
}

// exists probes a selector, swallowing evaluation errors. Transient CDP
// failures during polling read as "not there yet".
func (a *adapter) exists(ctx context.Context, selector string) bool {
	found, err := a.page.Exists(ctx, selector)
	return err == nil && found
}

// anyExists reports whether any of the selectors currently matches.
func (a *adapter) anyExists(ctx context.Context, selectors []string) bool {
	for _, sel := range selectors {
		if a.exists(ctx, sel) {
			return true
		}
	}
	return false
}

// uploadFiles attaches each path to the first matching file input, settling
// between attachments so the UI can register each one.
func (a *adapter) uploadFiles(ctx context.Context, fileInput SelectorList, paths []string) error {
	sel, err := fileInput.WaitFirstMatch(ctx, a.page, a.clock, a.name,
		a.cfg.PollInterval, a.cfg.ResponseMaxWait/10)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file %q is not readable: %w", path, err)
		}
		if err := a.page.UploadFile(ctx, sel, path); err != nil {
			return fmt.Errorf("failed to upload %q: %w", path, err)
		}
		a.logger.Debug("File attached.", zap.String("path", path))
		if err := a.settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// enterPrompt locates the editor, types the prompt, and submits it. A
// dedicated submit control is preferred; Enter is the fallback every chat UI
// supports.
func (a *adapter) enterPrompt(ctx context.Context, editor, submit SelectorList, prompt string) error {
	editorSel, err := editor.WaitFirstMatch(ctx, a.page, a.clock, a.name,
		a.cfg.PollInterval, a.cfg.ResponseMaxWait/10)
	if err != nil {
		return err
	}

	if err := a.page.TypeText(ctx, editorSel, prompt); err != nil {
		return fmt.Errorf("failed to enter prompt: %w", err)
	}
	if err := a.settle(ctx); err != nil {
		return err
	}

	if submitSel, err := submit.FirstMatch(ctx, a.page, a.name); err == nil {
		if err := a.page.Click(ctx, submitSel); err == nil {
			return nil
		}
		a.logger.Debug("Submit button click failed, falling back to Enter.")
	}
	if err := a.page.PressEnter(ctx); err != nil {
		return fmt.Errorf("failed to submit prompt: %w", err)
	}
	return nil
}

// textCompletion drives the shared completion poll for text responses. The
// page is considered done once the body text length has been stable, no
// thinking indicator is present, and (when readySelectors is non-empty) a
// post-response affordance has appeared, for StabilityCount consecutive polls.
func (a *adapter) textCompletion(ctx context.Context, readySelectors, thinkingSelectors []string) error {
	lastLen := -1

	err := browser.PollUntil(ctx, a.clock, browser.PollOpts{
		Interval:  a.cfg.PollInterval,
		MaxWait:   a.cfg.ResponseMaxWait,
		Stability: a.cfg.StabilityCount,
	}, func(pctx context.Context) (bool, error) {
		text, err := a.page.Text(pctx, "body")
		if err != nil {
			// Transient evaluation failure; treat as not-yet-stable.
			lastLen = -1
			return false, nil
		}

		stable := len(text) == lastLen && lastLen >= 0
		lastLen = len(text)

		if a.anyExists(pctx, thinkingSelectors) {
			return false, nil
		}
		if len(readySelectors) > 0 && !a.anyExists(pctx, readySelectors) {
			return false, nil
		}
		return stable, nil
	})

	if err != nil {
		return &TimeoutError{Provider: a.name, Op: "response completion",
			Ceiling: a.cfg.ResponseMaxWait, Err: err}
	}
	return nil
}

// extractResponse pulls the response text out of the last response container,
// degrading to whole-page text when no container selector matches.
func (a *adapter) extractResponse(ctx context.Context, containers SelectorList) string {
	for _, sel := range containers.Candidates {
		text, err := a.page.Text(ctx, sel)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	a.logger.Warn("No response container matched, falling back to page text.")
	text, err := a.page.Text(ctx, "body")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// snapshotMediaURLs records every media URL currently on the page so the
// media poll can distinguish new assets from pre-existing ones.
func (a *adapter) snapshotMediaURLs(ctx context.Context) []string {
	const expr = `Array.from(document.querySelectorAll('img,video,source'))
		.map(el => el.currentSrc || el.src)
		.filter(Boolean)`
	var urls []string
	if err := a.page.Evaluate(ctx, expr, &urls); err != nil {
		a.logger.Debug("Media snapshot failed.", zap.Error(err))
		return nil
	}
	return urls
}

// mediaElement is the raw media inventory the probe script reports; all
// qualification logic stays on the Go side.
type mediaElement struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Kind   string `json:"kind"`
}

// mediaExcludePatterns are URL substrings that mark chrome, not content.
var mediaExcludePatterns = []string{
	"logo", "icon", "avatar", "favicon", "emoji", "profile", "badge", "sprite",
}

const mediaProbeScript = `(function(withVideo) {
	const out = [];
	document.querySelectorAll('img').forEach(el => out.push({
		url: el.currentSrc || el.src || "",
		width: el.naturalWidth, height: el.naturalHeight, kind: "image"}));
	if (withVideo) {
		document.querySelectorAll('video').forEach(el => out.push({
			url: el.currentSrc || el.src || "",
			width: el.videoWidth, height: el.videoHeight, kind: "video"}));
	}
	return out;
})(%t)`

// qualifiesAsNewMedia applies the size and pattern heuristics plus the
// pre-submit snapshot exclusion. Videos often report zero dimensions before
// their metadata loads, so they pass the size check on URL alone.
func (a *adapter) qualifiesAsNewMedia(el mediaElement, known map[string]struct{}) bool {
	if el.URL == "" {
		return false
	}
	if _, seen := known[el.URL]; seen {
		return false
	}
	lower := strings.ToLower(el.URL)
	for _, pattern := range mediaExcludePatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	if el.Kind == "video" && el.Width == 0 && el.Height == 0 {
		return true
	}
	return el.Width >= a.cfg.MinImageWidth && el.Height >= a.cfg.MinImageHeight
}

// mediaCompletion polls for a new qualifying media element. The winning URL
// must survive MediaStability consecutive polls unchanged; provider UIs swap
// progressive placeholders into the slot while generation streams.
func (a *adapter) mediaCompletion(ctx context.Context, includeVideo bool, knownURLs []string) (string, error) {
	expr := fmt.Sprintf(mediaProbeScript, includeVideo)
	known := make(map[string]struct{}, len(knownURLs))
	for _, u := range knownURLs {
		known[u] = struct{}{}
	}

	lastURL := ""
	winner := ""

	err := browser.PollUntil(ctx, a.clock, browser.PollOpts{
		Interval:  a.cfg.MediaPollInterval,
		MaxWait:   a.cfg.MediaMaxWait,
		Stability: a.cfg.MediaStability,
	}, func(pctx context.Context) (bool, error) {
		var elements []mediaElement
		if err := a.page.Evaluate(pctx, expr, &elements); err != nil {
			lastURL = ""
			return false, nil
		}

		current := ""
		for _, el := range elements {
			if a.qualifiesAsNewMedia(el, known) {
				current = el.URL
				break
			}
		}
		if current == "" {
			lastURL = ""
			return false, nil
		}

		same := current == lastURL
		lastURL = current
		if same {
			winner = current
		}
		return same, nil
	})

	if err != nil {
		return "", &TimeoutError{Provider: a.name, Op: "media generation",
			Ceiling: a.cfg.MediaMaxWait, Err: err}
	}
	return winner, nil
}

// manualLoginWindow gives a human a bounded window to complete a login in the
// visible browser, re-checking loggedIn periodically. Returns true as soon as
// the check passes.
func (a *adapter) manualLoginWindow(ctx context.Context, loggedIn func(context.Context) bool) bool {
	a.logger.Info("Waiting for manual login in the browser window.",
		zap.Duration("ceiling", a.cfg.ManualLoginWait))

	err := browser.PollUntil(ctx, a.clock, browser.PollOpts{
		Interval:  a.cfg.LoginCheckEvery,
		MaxWait:   a.cfg.ManualLoginWait,
		Stability: 1,
	}, func(pctx context.Context) (bool, error) {
		return loggedIn(pctx), nil
	})
	return err == nil
}
