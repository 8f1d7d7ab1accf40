// File: internal/provider/selector.go
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/outfitlab/tryon-cli/internal/browser"
)

// SelectorList is an ordered list of CSS selector candidates for one UI role.
// The provider UIs are not stable, so every lookup degrades through the list
// and the first match wins. Changing a recipe after a provider redesign is a
// data change here, not a code change.
type SelectorList struct {
	Role       string
	Candidates []string
}

// FirstMatch probes each candidate in order and returns the first selector
// that currently matches an element. A miss across the whole list is an
// ElementNotFoundError.
func (l SelectorList) FirstMatch(ctx context.Context, page browser.Page, providerName string) (string, error) {
	for _, sel := range l.Candidates {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			return "", err
		}
		if found {
			return sel, nil
		}
	}
	return "", &ElementNotFoundError{Provider: providerName, Role: l.Role, Tried: l.Candidates}
}

// WaitFirstMatch polls the list until some candidate matches or the window
// expires. Useful right after navigation when the app shell is still
// hydrating.
func (l SelectorList) WaitFirstMatch(ctx context.Context, page browser.Page, clock browser.Clock, providerName string, interval, maxWait time.Duration) (string, error) {
	var matched string
	err := browser.PollUntil(ctx, clock,
		browser.PollOpts{Interval: interval, MaxWait: maxWait, Stability: 1},
		func(pctx context.Context) (bool, error) {
			sel, err := l.FirstMatch(pctx, page, providerName)
			if err != nil {
				var enf *ElementNotFoundError
				if errors.As(err, &enf) {
					return false, nil
				}
				return false, err
			}
			matched = sel
			return true, nil
		})
	if err != nil {
		return "", &ElementNotFoundError{Provider: providerName, Role: l.Role, Tried: l.Candidates}
	}
	return matched, nil
}
