// File: internal/browser/page.go
package browser

import (
	"context"
	"time"

	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// Page is the surface provider recipes drive. A live Session implements it on
// top of CDP; tests substitute scripted fakes so recipes can be exercised
// without a browser.
type Page interface {
	// Navigate loads the URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current document.
	Reload(ctx context.Context) error
	// URL returns the current document location.
	URL(ctx context.Context) (string, error)
	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Exists reports whether the selector currently matches any element. It
	// never waits.
	Exists(ctx context.Context, selector string) (bool, error)
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// TypeText focuses the element and types text with human-like keystroke
	// pacing.
	TypeText(ctx context.Context, selector, text string) error
	// PressEnter sends an Enter keypress to the focused element.
	PressEnter(ctx context.Context) error
	// UploadFile attaches a local file to a file input element.
	UploadFile(ctx context.Context, selector, path string) error
	// Text returns the inner text of the first matching element, or "" when
	// nothing matches.
	Text(ctx context.Context, selector string) (string, error)
	// Evaluate runs a JS expression and decodes its result into out. Pass a
	// nil out to discard the result.
	Evaluate(ctx context.Context, expression string, out any) error
	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}

// StatefulPage extends Page with the authentication-state operations login
// recipes need. Session implements it; tests can fake it.
type StatefulPage interface {
	Page
	SetCookies(ctx context.Context, cookies []sessionstore.Cookie) error
	SetLocalStorage(ctx context.Context, items map[string]string) error
	CaptureState(ctx context.Context) (sessionstore.CapturedState, error)
}
