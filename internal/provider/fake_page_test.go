package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// fakePage is a scripted StatefulPage. Selector presence, body-text
// progression, and media inventories are all data, so recipes can be driven
// through their full state machines without a browser.
type fakePage struct {
	mu sync.Mutex

	present map[string]bool
	// presentAfter makes a selector appear only after N Exists probes,
	// simulating UI that shows up later (e.g. a user finishing a login).
	presentAfter map[string]int
	texts        map[string]string

	// bodyTexts is consumed one entry per Text("body") call; the last entry
	// is sticky.
	bodyTexts []string
	bodyIdx   int

	// mediaFrames is consumed one entry per media-probe Evaluate; the last
	// frame is sticky.
	mediaFrames [][]mediaElement
	mediaIdx    int

	snapshotURLs []string
	title        string
	gated        bool

	navigated []string
	reloads   int
	clicked   []string
	typed     map[string]string
	uploads   []string
	enters    int

	cookiesSet   []sessionstore.Cookie
	localSet     map[string]string
	captured     sessionstore.CapturedState
	captureError error
}

func newFakePage() *fakePage {
	return &fakePage{
		present:      map[string]bool{},
		presentAfter: map[string]int{},
		texts:        map[string]string{},
		typed:        map[string]string{},
	}
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakePage) URL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.navigated) == 0 {
		return "about:blank", nil
	}
	return f.navigated[len(f.navigated)-1], nil
}

func (f *fakePage) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.present[selector] {
		return nil
	}
	return fmt.Errorf("element %q not visible", selector)
}

func (f *fakePage) Exists(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.presentAfter[selector]; ok {
		if n <= 0 {
			return true, nil
		}
		f.presentAfter[selector] = n - 1
		return false, nil
	}
	return f.present[selector], nil
}

func (f *fakePage) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present[selector] {
		return fmt.Errorf("no element %q to click", selector)
	}
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakePage) TypeText(_ context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present[selector] {
		return fmt.Errorf("no element %q to type into", selector)
	}
	f.typed[selector] += text
	return nil
}

func (f *fakePage) PressEnter(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters++
	return nil
}

func (f *fakePage) UploadFile(_ context.Context, selector, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present[selector] {
		return fmt.Errorf("no file input %q", selector)
	}
	f.uploads = append(f.uploads, path)
	return nil
}

func (f *fakePage) Text(_ context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if selector == "body" && len(f.bodyTexts) > 0 {
		text := f.bodyTexts[f.bodyIdx]
		if f.bodyIdx < len(f.bodyTexts)-1 {
			f.bodyIdx++
		}
		return text, nil
	}
	return f.texts[selector], nil
}

func (f *fakePage) Evaluate(_ context.Context, expression string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(expression, "'img,video,source'"):
		return decodeInto(f.snapshotURLs, out)
	case strings.Contains(expression, "querySelectorAll('img')"):
		if len(f.mediaFrames) == 0 {
			return decodeInto([]mediaElement{}, out)
		}
		frame := f.mediaFrames[f.mediaIdx]
		if f.mediaIdx < len(f.mediaFrames)-1 {
			f.mediaIdx++
		}
		return decodeInto(frame, out)
	case strings.Contains(expression, "document.title"):
		return decodeInto(f.title, out)
	case strings.Contains(expression, "Unlock Your Insights"):
		return decodeInto(f.gated, out)
	default:
		return decodeInto(nil, out)
	}
}

func (f *fakePage) Screenshot(context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakePage) SetCookies(_ context.Context, cookies []sessionstore.Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookiesSet = append(f.cookiesSet, cookies...)
	return nil
}

func (f *fakePage) SetLocalStorage(_ context.Context, items map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.localSet == nil {
		f.localSet = map[string]string{}
	}
	for k, v := range items {
		f.localSet[k] = v
	}
	return nil
}

func (f *fakePage) CaptureState(context.Context) (sessionstore.CapturedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captured, f.captureError
}

func decodeInto(v, out any) error {
	if out == nil {
		return nil
	}
	data, err := jsoniter.Marshal(v)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(data, out)
}
