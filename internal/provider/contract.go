// File: internal/provider/contract.go
package provider

import "context"

// Analyzer is the shared contract for providers that can look at images and
// answer a prompt about them.
type Analyzer interface {
	Initialize(ctx context.Context) error
	AnalyzeImage(ctx context.Context, path, prompt string) (*AnalysisResult, error)
	AnalyzeMultipleImages(ctx context.Context, paths []string, prompt string) (*AnalysisResult, error)
	Close()
}

// Generator is the shared contract for providers that can render images or
// videos from a prompt.
type Generator interface {
	Initialize(ctx context.Context) error
	GenerateImage(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error)
	GenerateVideo(ctx context.Context, prompt string, opts GenerateOpts) (*GeneratedAsset, error)
	Close()
}

// Provider name constants used by the flow catalog and the CLI.
const (
	NameGrok       = grokName
	NameZai        = zaiName
	NameGoogleFlow = googleFlowName
)

// Names lists every supported provider.
func Names() []string {
	return []string{NameGrok, NameZai, NameGoogleFlow}
}

// HomeURL returns the landing surface for a provider name, or "" when the
// provider is unknown.
func HomeURL(name string) string {
	switch name {
	case NameGrok:
		return grokURL
	case NameZai:
		return zaiURL
	case NameGoogleFlow:
		return googleFlowURL
	default:
		return ""
	}
}

var (
	_ Analyzer  = (*Grok)(nil)
	_ Generator = (*Grok)(nil)
	_ Analyzer  = (*ZaiChat)(nil)
	_ Generator = (*ZaiImage)(nil)
	_ Generator = (*GoogleFlow)(nil)
)
