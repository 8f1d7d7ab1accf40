// File: internal/provider/types.go
package provider

// DefaultAnalysisPrompt asks the analysis provider to describe a try-on
// pairing in terms a generation model can reproduce. Every entry point that
// accepts an optional prompt falls back to it; adapters are never driven
// with an empty prompt.
const DefaultAnalysisPrompt = "The first image shows a person, the second a clothing item. " +
	"Describe in detail how the person would look wearing this clothing item: " +
	"pose, body type, fabric drape, colors, lighting, and background."

// AnalysisResult is the free-form text a provider produced for an analysis
// prompt.
type AnalysisResult struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// GeneratedAsset references a generated image or video. LocalPath is empty
// unless the asset was downloaded.
type GeneratedAsset struct {
	Provider  string `json:"provider"`
	URL       string `json:"url"`
	LocalPath string `json:"localPath,omitempty"`
}

// GenerateOpts tunes a single generation call.
type GenerateOpts struct {
	// Download fetches the asset to OutputDir after detection.
	Download  bool
	OutputDir string
}
