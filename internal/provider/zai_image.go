// File: internal/provider/zai_image.go
package provider

import (
	"context"

	"go.uber.org/zap"
)

// ZaiImage automates Z.AI's image-generation mode. It shares the stored
// session with ZaiChat since both run against the same origin.
type ZaiImage struct {
	adapter
}

// NewZaiImage builds a Z.AI generation adapter over a live page.
func NewZaiImage(deps Deps) *ZaiImage {
	return &ZaiImage{adapter: newAdapter(zaiName, deps)}
}

// Initialize establishes access and switches the UI into image mode when the
// toggle is present.
func (z *ZaiImage) Initialize(ctx context.Context) error {
	if err := zaiEnsureAccess(ctx, &z.adapter); err != nil {
		return err
	}

	for _, sel := range []string{
		`button[aria-label*="Image"]`,
		`button[data-mode="image"]`,
	} {
		if z.exists(ctx, sel) {
			if err := z.page.Click(ctx, sel); err == nil {
				z.logger.Debug("Switched to image mode.", zap.String("selector", sel))
				break
			}
		}
	}
	return nil
}

// GenerateImage submits the prompt and waits for a new qualifying image.
func (z *ZaiImage) GenerateImage(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return z.generate(ctx, prompt, false, opts)
}

// GenerateVideo submits the prompt and waits for a new video element.
func (z *ZaiImage) GenerateVideo(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error) {
	return z.generate(ctx, prompt, true, opts)
}

func (z *ZaiImage) generate(ctx context.Context, prompt string, video bool, opts GenerateOpts) (*GeneratedAsset, error) {
	known := z.snapshotMediaURLs(ctx)

	if err := z.enterPrompt(ctx, zaiEditor, zaiSubmit, prompt); err != nil {
		z.diagnose(ctx, "generate-prompt")
		return nil, err
	}

	url, err := z.mediaCompletion(ctx, video, known)
	if err != nil {
		z.diagnose(ctx, "generate-poll")
		return nil, err
	}

	asset := &GeneratedAsset{Provider: z.name, URL: url}
	if opts.Download {
		local, err := z.downloader.Fetch(ctx, url, opts.OutputDir, z.name)
		if err != nil {
			z.logger.Warn("Download failed, returning URL only.", zap.Error(err))
		} else {
			asset.LocalPath = local
		}
	}
	z.logger.Info("Generation complete.", zap.String("url", url))
	return asset, nil
}
