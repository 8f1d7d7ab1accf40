// File: internal/provider/errors.go
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/outfitlab/tryon-cli/internal/browser"
)

// Kind classifies adapter failures so callers can pattern-match on the
// failure mode instead of probing error strings.
type Kind int

const (
	KindUnknown Kind = iota
	// KindElementNotFound means no selector candidate matched the expected UI
	// affordance. Fatal to the current call.
	KindElementNotFound
	// KindTimeout means a browser command or completion poll exceeded its
	// ceiling. Reported as a failed result, not necessarily fatal to a batch.
	KindTimeout
	// KindLoginRequired means a login-gated provider had no valid session and
	// no manual fallback succeeded.
	KindLoginRequired
	// KindUploadFailure means the external asset host rejected a file.
	KindUploadFailure
)

func (k Kind) String() string {
	switch k {
	case KindElementNotFound:
		return "element_not_found"
	case KindTimeout:
		return "timeout"
	case KindLoginRequired:
		return "login_required"
	case KindUploadFailure:
		return "upload_failure"
	default:
		return "unknown"
	}
}

// ElementNotFoundError reports that every selector candidate for a UI role
// missed.
type ElementNotFoundError struct {
	Provider string
	Role     string
	Tried    []string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s: no %s element found (tried %s)",
		e.Provider, e.Role, strings.Join(e.Tried, ", "))
}

// TimeoutError reports that an operation exhausted its wait ceiling.
type TimeoutError struct {
	Provider string
	Op       string
	Ceiling  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s did not complete within %v", e.Provider, e.Op, e.Ceiling)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// LoginRequiredError reports a login-gated provider without a usable session.
type LoginRequiredError struct {
	Provider string
	Reason   string
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("%s: login required: %s", e.Provider, e.Reason)
}

// UploadFailureError reports a rejection by the external asset host.
type UploadFailureError struct {
	Host       string
	StatusCode int
	Message    string
}

func (e *UploadFailureError) Error() string {
	return fmt.Sprintf("asset host %s rejected upload (status %d): %s",
		e.Host, e.StatusCode, e.Message)
}

// KindOf discriminates an error into its Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var enf *ElementNotFoundError
	if errors.As(err, &enf) {
		return KindElementNotFound
	}
	var lre *LoginRequiredError
	if errors.As(err, &lre) {
		return KindLoginRequired
	}
	var ufe *UploadFailureError
	if errors.As(err, &ufe) {
		return KindUploadFailure
	}
	var toe *TimeoutError
	if errors.As(err, &toe) {
		return KindTimeout
	}
	if errors.Is(err, browser.ErrPollTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}
