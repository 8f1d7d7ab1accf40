// File: internal/orchestrator/factory.go
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/browser"
	"github.com/outfitlab/tryon-cli/internal/config"
	"github.com/outfitlab/tryon-cli/internal/provider"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// BrowserFactory builds adapters over freshly launched browser sessions. One
// browser per adapter: flows must not share DOM state.
type BrowserFactory struct {
	cfg    *config.Config
	store  *sessionstore.Store
	logger *zap.Logger
}

// NewBrowserFactory wires the production adapter factory.
func NewBrowserFactory(cfg *config.Config, store *sessionstore.Store, logger *zap.Logger) *BrowserFactory {
	return &BrowserFactory{cfg: cfg, store: store, logger: logger}
}

var _ AdapterFactory = (*BrowserFactory)(nil)

func (f *BrowserFactory) deps(ctx context.Context) (provider.Deps, error) {
	sess, err := browser.Launch(ctx, f.cfg.Browser, f.logger)
	if err != nil {
		return provider.Deps{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	return provider.Deps{
		Page:        sess,
		Clock:       browser.SystemClock(),
		Store:       f.store,
		Cfg:         f.cfg.Providers,
		Logger:      f.logger,
		Interactive: !f.cfg.Browser.Headless,
		CloseFn:     sess.Close,
	}, nil
}

// NewAnalyzer constructs the analysis adapter for a provider name.
func (f *BrowserFactory) NewAnalyzer(ctx context.Context, providerName string) (provider.Analyzer, error) {
	deps, err := f.deps(ctx)
	if err != nil {
		return nil, err
	}
	switch providerName {
	case provider.NameGrok:
		return provider.NewGrok(deps), nil
	case provider.NameZai:
		return provider.NewZaiChat(deps), nil
	default:
		deps.CloseFn()
		return nil, fmt.Errorf("no analysis adapter for provider %q", providerName)
	}
}

// NewGenerator constructs the generation adapter for a provider name.
func (f *BrowserFactory) NewGenerator(ctx context.Context, providerName string) (provider.Generator, error) {
	deps, err := f.deps(ctx)
	if err != nil {
		return nil, err
	}
	switch providerName {
	case provider.NameGrok:
		return provider.NewGrok(deps), nil
	case provider.NameZai:
		return provider.NewZaiImage(deps), nil
	case provider.NameGoogleFlow:
		return provider.NewGoogleFlow(deps), nil
	default:
		deps.CloseFn()
		return nil, fmt.Errorf("no generation adapter for provider %q", providerName)
	}
}
