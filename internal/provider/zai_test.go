package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zaiReadyPage() *fakePage {
	page := newFakePage()
	page.present[`#chat-input`] = true
	page.present[`button#send-message-button`] = true
	page.present[`button[aria-label*="Copy"]`] = true
	page.present[`input[type="file"]`] = true
	page.present[`img[class*="avatar"]`] = true
	return page
}

func TestZaiChatInitialize_ValidSession(t *testing.T) {
	page := zaiReadyPage()
	clock := newFakeClock()
	deps := testDeps(t, page, clock)
	require.NoError(t, deps.Store.Save(NameZai, sampleCapturedState()))

	z := NewZaiChat(deps)
	require.NoError(t, z.Initialize(context.Background()))

	assert.Equal(t, []string{zaiURL}, page.navigated)
	assert.Equal(t, 1, page.reloads)
}

func TestZaiChatInitialize_HeadlessWithoutSessionFails(t *testing.T) {
	page := newFakePage()
	page.present[`button[data-testid="login-button"]`] = true
	clock := newFakeClock()

	z := NewZaiChat(testDeps(t, page, clock))
	err := z.Initialize(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindLoginRequired, KindOf(err))
}

func TestZaiChatInitialize_ManualLoginCapturesSession(t *testing.T) {
	page := newFakePage()
	// The avatar shows up on the fourth login probe, i.e. after the user
	// finished signing in inside the visible window.
	page.presentAfter[`img[class*="avatar"]`] = 3
	page.present[`#chat-input`] = true
	page.captured = sampleCapturedState()
	clock := newFakeClock()

	deps := testDeps(t, page, clock)
	deps.Interactive = true

	z := NewZaiChat(deps)
	require.NoError(t, z.Initialize(context.Background()))

	// A successful manual login must persist the fresh session.
	saved := deps.Store.Load(NameZai)
	require.NotNil(t, saved)
	assert.Len(t, saved.Cookies, 3)
}

func TestZaiChatInitialize_ManualWindowExpires(t *testing.T) {
	page := newFakePage()
	page.present[`button[data-testid="login-button"]`] = true
	clock := newFakeClock()

	deps := testDeps(t, page, clock)
	deps.Interactive = true

	z := NewZaiChat(deps)
	err := z.Initialize(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindLoginRequired, KindOf(err))
	// The window is bounded: elapsed time cannot exceed the ceiling plus the
	// trailing checks.
	assert.LessOrEqual(t, clock.elapsed, deps.Cfg.ManualLoginWait)
}

func TestZaiChatInitialize_GatedModalBlocksAnonymousTier(t *testing.T) {
	page := newFakePage()
	page.gated = true
	clock := newFakeClock()

	z := NewZaiChat(testDeps(t, page, clock))
	err := z.Initialize(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindLoginRequired, KindOf(err))
}

func TestZaiChatInitialize_AnonymousEditorSuffices(t *testing.T) {
	page := newFakePage()
	// Logged out but the free-tier editor is reachable.
	page.present[`button[data-testid="login-button"]`] = true
	page.present[`#chat-input`] = true
	clock := newFakeClock()

	z := NewZaiChat(testDeps(t, page, clock))
	require.NoError(t, z.Initialize(context.Background()))
}

func TestZaiChatAnalyze(t *testing.T) {
	page := zaiReadyPage()
	page.bodyTexts = []string{"thinking", "the answer settled here", "the answer settled here"}
	page.texts[`div.chat-assistant:last-of-type .markdown-prose`] = "Blue denim jacket."
	clock := newFakeClock()

	z := NewZaiChat(testDeps(t, page, clock))
	result, err := z.AnalyzeImage(context.Background(), tmpImage(t, "look.png"), "Describe it")

	require.NoError(t, err)
	assert.Equal(t, NameZai, result.Provider)
	assert.Equal(t, "Blue denim jacket.", result.Text)
	assert.Contains(t, page.clicked, `button#send-message-button`)
}

func TestZaiImageGenerate(t *testing.T) {
	page := zaiReadyPage()
	generated := mediaElement{URL: "https://chat.z.ai/files/out-42.png", Width: 768, Height: 768, Kind: "image"}
	page.mediaFrames = [][]mediaElement{
		{},
		{generated},
	}
	clock := newFakeClock()

	z := NewZaiImage(testDeps(t, page, clock))
	asset, err := z.GenerateImage(context.Background(), "red dress, studio light", GenerateOpts{})

	require.NoError(t, err)
	assert.Equal(t, generated.URL, asset.URL)
	assert.Equal(t, "red dress, studio light", page.typed[`#chat-input`])
}

func TestGoogleFlowInitialize_HeadlessNoSessionFailsFast(t *testing.T) {
	page := newFakePage()
	clock := newFakeClock()

	f := NewGoogleFlow(testDeps(t, page, clock))
	err := f.Initialize(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindLoginRequired, KindOf(err))
	assert.Empty(t, page.navigated, "fail-fast must not even open the page")
}

func TestGoogleFlowInitialize_StoredSessionAccepted(t *testing.T) {
	page := newFakePage()
	page.present[`img[alt*="profile" i]`] = true
	clock := newFakeClock()

	deps := testDeps(t, page, clock)
	require.NoError(t, deps.Store.Save(NameGoogleFlow, sampleCapturedState()))

	f := NewGoogleFlow(deps)
	require.NoError(t, f.Initialize(context.Background()))
	assert.Equal(t, []string{googleFlowURL}, page.navigated)
}

func TestGoogleFlowGenerateVideo(t *testing.T) {
	page := newFakePage()
	page.present[`img[alt*="profile" i]`] = true
	page.present[`textarea`] = true
	page.present[`button[aria-label*="Generate"]`] = true
	clip := mediaElement{URL: "https://labs.google/fx/clip-99.mp4", Kind: "video"}
	page.mediaFrames = [][]mediaElement{{}, {clip}}
	clock := newFakeClock()

	deps := testDeps(t, page, clock)
	require.NoError(t, deps.Store.Save(NameGoogleFlow, sampleCapturedState()))

	f := NewGoogleFlow(deps)
	require.NoError(t, f.Initialize(context.Background()))

	asset, err := f.GenerateVideo(context.Background(), "model turns around", GenerateOpts{})
	require.NoError(t, err)
	assert.Equal(t, clip.URL, asset.URL)
}
