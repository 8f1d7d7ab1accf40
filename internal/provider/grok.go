// File: internal/provider/grok.go
package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	grokName = "grok"
	grokURL  = "https://grok.com"

	// Cloudflare sits in front of the site and sometimes re-challenges even a
	// seeded session; a handful of reloads usually clears it.
	grokCloudflareAttempts = 5
)

// Grok selector recipe. Ordered by how the UI has historically evolved; the
// first entries are current, the tail are older fallbacks.
var (
	grokFileInput = SelectorList{Role: "file input", Candidates: []string{
		`input[type="file"][accept*="image"]`,
		`input[type="file"]`,
	}}
	grokEditor = SelectorList{Role: "prompt editor", Candidates: []string{
		`.tiptap.ProseMirror`,
		`div[contenteditable="true"]`,
		`textarea[placeholder*="Ask"]`,
		`textarea`,
		`[role="textbox"]`,
	}}
	grokSubmit = SelectorList{Role: "submit button", Candidates: []string{
		`button[type="submit"]`,
		`button[aria-label="Submit"]`,
		`button[aria-label*="Send"]`,
	}}
	grokResponse = SelectorList{Role: "response container", Candidates: []string{
		`div.message-bubble:last-of-type .response-content-markdown`,
		`div.message-bubble:last-of-type`,
		`div[class*="message"]:last-child`,
	}}

	// Affordances that only render once a response has finished streaming.
	grokReadySelectors = []string{
		`div.action-buttons`,
		`button[aria-label*="Regenerate"]`,
		`button[aria-label*="Copy"]`,
	}
	grokThinkingSelectors = []string{
		`[data-thinking]`,
		`div[class*="thinking"]`,
		`svg[class*="spinner"]`,
	}

	grokEssentialCookies = []string{"sso", "cf_clearance", "session", "auth"}
)

// Grok automates the grok.com chat UI. It works without a login; a stored
// session is injected when available to lift rate limits.
type Grok struct {
	adapter
}

// NewGrok builds a Grok adapter over a live page.
func NewGrok(deps Deps) *Grok {
	return &Grok{adapter: newAdapter(grokName, deps)}
}

// Initialize navigates to the landing surface, seeds the stored session,
// clears Cloudflare challenges, and waits for the chat editor.
func (g *Grok) Initialize(ctx context.Context) error {
	if err := g.page.Navigate(ctx, grokURL); err != nil {
		return fmt.Errorf("grok: initial navigation failed: %w", err)
	}

	// Cookies become installable only after this first navigation; the reload
	// inside injectSession makes the page scripts pick them up.
	g.injectSession(ctx, grokEssentialCookies)

	if err := g.clearCloudflare(ctx); err != nil {
		return err
	}

	if _, err := grokEditor.WaitFirstMatch(ctx, g.page, g.clock, g.name,
		g.cfg.PollInterval, g.cfg.ResponseMaxWait/5); err != nil {
		g.diagnose(ctx, "initialize")
		return err
	}

	g.dismissAgeVerification(ctx)
	g.logger.Info("Grok ready.")
	return nil
}

// clearCloudflare reloads through the interstitial challenge a bounded number
// of times.
func (g *Grok) clearCloudflare(ctx context.Context) error {
	for attempt := 1; attempt <= grokCloudflareAttempts; attempt++ {
		if !g.challenged(ctx) {
			return nil
		}
		g.logger.Info("Cloudflare challenge detected, waiting it out.",
			zap.Int("attempt", attempt))
		if err := g.clock.Sleep(ctx, g.cfg.MediaPollInterval); err != nil {
			return err
		}
		if err := g.page.Reload(ctx); err != nil {
			g.logger.Warn("Reload during Cloudflare clearing failed.", zap.Error(err))
		}
	}
	if g.challenged(ctx) {
		g.diagnose(ctx, "cloudflare")
		return &TimeoutError{Provider: g.name, Op: "cloudflare clearance",
			Ceiling: g.cfg.MediaPollInterval * grokCloudflareAttempts}
	}
	return nil
}

func (g *Grok) challenged(ctx context.Context) bool {
	var title string
	if err := g.page.Evaluate(ctx, `document.title`, &title); err == nil {
		if strings.Contains(title, "Just a moment") {
			return true
		}
	}
	return g.exists(ctx, `#challenge-running`) || g.exists(ctx, `#challenge-form`)
}

// dismissAgeVerification fills the birth-year gate that grok.com shows on
// some first visits. Best effort; absence of the modal is the normal case.
func (g *Grok) dismissAgeVerification(ctx context.Context) {
	const yearInput = `input[placeholder*="year" i]`
	if !g.exists(ctx, yearInput) {
		return
	}
	g.logger.Info("Dismissing age verification modal.")
	if err := g.page.TypeText(ctx, yearInput, "1990"); err != nil {
		g.logger.Debug("Could not fill age verification year.", zap.Error(err))
		return
	}
	for _, sel := range []string{`button[aria-label="Continue"]`, `button[type="submit"]`} {
		if g.exists(ctx, sel) {
			if err := g.page.Click(ctx, sel); err == nil {
				return
			}
		}
	}
}

// AnalyzeImage analyzes a single image with the prompt.
func (g *Grok) AnalyzeImage(ctx context.Context, path, prompt string) (*AnalysisResult, error) {
	return g.AnalyzeMultipleImages(ctx, []string{path}, prompt)
}

// AnalyzeMultipleImages uploads the images, submits the prompt, waits for the
// streamed response to settle, and extracts it.
func (g *Grok) AnalyzeMultipleImages(ctx context.Context, paths []string, prompt string) (*AnalysisResult, error) {
	if err := g.uploadFiles(ctx, grokFileInput, paths); err != nil {
		g.diagnose(ctx, "analyze-upload")
		return nil, err
	}
	if err := g.enterPrompt(ctx, grokEditor, grokSubmit, prompt); err != nil {
		g.diagnose(ctx, "analyze-prompt")
		return nil, err
	}
	if err := g.textCompletion(ctx, grokReadySelectors, grokThinkingSelectors); err != nil {
		g.diagnose(ctx, "analyze-poll")
		return nil, err
	}

	// The modal can also appear mid-conversation and freeze the response area.
	g.dismissAgeVerification(ctx)

	text := g.extractResponse(ctx, grokResponse)
	if text == "" {
		return nil, &ElementNotFoundError{Provider: g.name, Role: "response text",
			Tried: grokResponse.Candidates}
	}
	g.logger.Info("Analysis complete.", zap.Int("response_chars", len(text)))
	return &AnalysisResult{Provider: g.name, Text: text}, nil
}

// GenerateImage asks Grok to render an image and waits for it to appear.
func (g *Grok) GenerateImage(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return g.generateMedia(ctx, "/imagine "+prompt, false, opts)
}

// GenerateVideo asks Grok for a video clip.
func (g *Grok) GenerateVideo(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return g.generateMedia(ctx, "Generate a video: "+prompt, true, opts)
}

func (g *Grok) generateMedia(ctx context.Context, prompt string, video bool, opts GenerateOpts) (*GeneratedAsset, error) {
	known := g.snapshotMediaURLs(ctx)

	if err := g.enterPrompt(ctx, grokEditor, grokSubmit, prompt); err != nil {
		g.diagnose(ctx, "generate-prompt")
		return nil, err
	}

	url, err := g.mediaCompletion(ctx, video, known)
	if err != nil {
		g.diagnose(ctx, "generate-poll")
		return nil, err
	}

	asset := &GeneratedAsset{Provider: g.name, URL: url}
	if opts.Download {
		local, err := g.downloader.Fetch(ctx, url, opts.OutputDir, g.name)
		if err != nil {
			g.logger.Warn("Download failed, returning URL only.", zap.Error(err))
		} else {
			asset.LocalPath = local
		}
	}
	g.logger.Info("Generation complete.", zap.String("url", url))
	return asset, nil
}
