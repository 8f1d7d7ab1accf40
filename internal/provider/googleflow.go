// File: internal/provider/googleflow.go
package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	googleFlowName = "google-flow"
	googleFlowURL  = "https://labs.google/fx/tools/flow"
)

var (
	googleFlowEditor = SelectorList{Role: "prompt editor", Candidates: []string{
		`textarea[placeholder*="Describe"]`,
		`textarea[aria-label*="prompt" i]`,
		`div[contenteditable="true"]`,
		`textarea`,
	}}
	googleFlowSubmit = SelectorList{Role: "generate button", Candidates: []string{
		`button[aria-label*="Generate"]`,
		`button[type="submit"]`,
	}}

	googleFlowLoggedInSelectors = []string{
		`img[alt*="profile" i]`,
		`a[aria-label*="Google Account"]`,
	}
	googleFlowLoggedOutSelectors = []string{
		`a[href*="accounts.google.com"]`,
		`button[data-testid="sign-in"]`,
	}

	googleFlowEssentialCookies = []string{"sid", "hsid", "ssid", "sapisid", "apisid", "__secure"}
)

// GoogleFlow automates the Flow video-generation tool. A Google account is
// mandatory; there is no anonymous tier.
type GoogleFlow struct {
	adapter
}

// NewGoogleFlow builds a Flow adapter over a live page.
func NewGoogleFlow(deps Deps) *GoogleFlow {
	return &GoogleFlow{adapter: newAdapter(googleFlowName, deps)}
}

// Initialize navigates to the tool and establishes an authenticated session.
// With no stored session and a headless browser this fails fast; there is
// nothing a human could click.
func (f *GoogleFlow) Initialize(ctx context.Context) error {
	if !f.interactive && (f.store == nil || !f.store.Has(f.name)) {
		return &LoginRequiredError{Provider: f.name,
			Reason: "no stored session and browser is headless"}
	}

	if err := f.page.Navigate(ctx, googleFlowURL); err != nil {
		return fmt.Errorf("google-flow: initial navigation failed: %w", err)
	}

	f.injectSession(ctx, googleFlowEssentialCookies)

	if f.loggedIn(ctx) {
		f.logger.Info("Google Flow session is valid.")
		return nil
	}

	if f.interactive {
		if f.manualLoginWindow(ctx, f.loggedIn) {
			f.saveSession(ctx)
			f.logger.Info("Manual Google login captured.")
			return nil
		}
	}

	f.diagnose(ctx, "login")
	return &LoginRequiredError{Provider: f.name,
		Reason: "stored session rejected and manual login window expired"}
}

func (f *GoogleFlow) loggedIn(ctx context.Context) bool {
	if f.anyExists(ctx, googleFlowLoggedOutSelectors) {
		return false
	}
	return f.anyExists(ctx, googleFlowLoggedInSelectors)
}

// GenerateImage renders a still frame. Flow is video-first, but stills come
// out of the same gallery.
func (f *GoogleFlow) GenerateImage(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return f.generate(ctx, prompt, false, opts)
}

// GenerateVideo submits the prompt and polls the project gallery for the
// rendered clip.
func (f *GoogleFlow) GenerateVideo(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return f.generate(ctx, prompt, true, opts)
}

func (f *GoogleFlow) generate(ctx context.Context, prompt string, video bool, opts GenerateOpts) (*GeneratedAsset, error) {
	known := f.snapshotMediaURLs(ctx)

	if err := f.enterPrompt(ctx, googleFlowEditor, googleFlowSubmit, prompt); err != nil {
		f.diagnose(ctx, "generate-prompt")
		return nil, err
	}

	url, err := f.mediaCompletion(ctx, video, known)
	if err != nil {
		f.diagnose(ctx, "generate-poll")
		return nil, err
	}

	asset := &GeneratedAsset{Provider: f.name, URL: url}
	if opts.Download {
		local, err := f.downloader.Fetch(ctx, url, opts.OutputDir, f.name)
		if err != nil {
			f.logger.Warn("Download failed, returning URL only.", zap.Error(err))
		} else {
			asset.LocalPath = local
		}
	}
	f.logger.Info("Flow generation complete.", zap.String("url", url))
	return asset, nil
}
