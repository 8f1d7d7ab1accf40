package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvasionsScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, evasionsScript)
	assert.Contains(t, evasionsScript, "webdriver")
	assert.Contains(t, evasionsScript, "plugins")
	assert.Contains(t, evasionsScript, "window.chrome")
	// Every patch must be isolated so one failure cannot cascade.
	assert.Greater(t, strings.Count(evasionsScript, "try {"), 4)
}

func TestApplyProducesTasks(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	assert.NotEmpty(t, tasks)
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "en-US,en;q=0.9", acceptLanguage(nil))
	assert.Equal(t, "de-DE", acceptLanguage([]string{"de-DE"}))
	assert.Equal(t, "en-US,en;q=0.9", acceptLanguage([]string{"en-US", "en"}))
}

func TestDefaultPersonaConsistency(t *testing.T) {
	// The UA string and platform must agree or the persona is self-defeating.
	assert.Contains(t, DefaultPersona.UserAgent, "Windows NT")
	assert.Equal(t, "Win32", DefaultPersona.Platform)
	assert.NotContains(t, DefaultPersona.UserAgent, "Headless")
}
