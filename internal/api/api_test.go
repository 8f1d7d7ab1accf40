package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/orchestrator"
	"github.com/outfitlab/tryon-cli/internal/provider"
)

type fakeAnalyzer struct {
	text string
	err  error

	// lastPrompt records what the adapter was actually driven with.
	lastPrompt string
}

func (f *fakeAnalyzer) Initialize(context.Context) error { return nil }

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, path, prompt string) (*provider.AnalysisResult, error) {
	return f.AnalyzeMultipleImages(ctx, []string{path}, prompt)
}

func (f *fakeAnalyzer) AnalyzeMultipleImages(_ context.Context, _ []string, prompt string) (*provider.AnalysisResult, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &provider.AnalysisResult{Provider: "grok", Text: f.text}, nil
}

func (f *fakeAnalyzer) Close() {}

type fakeGenerator struct {
	imageErr error
	videoErr error
}

func (f *fakeGenerator) Initialize(context.Context) error { return nil }

func (f *fakeGenerator) GenerateImage(context.Context, string, provider.GenerateOpts) (*provider.GeneratedAsset, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &provider.GeneratedAsset{Provider: "grok", URL: "https://g/img.png"}, nil
}

func (f *fakeGenerator) GenerateVideo(context.Context, string, provider.GenerateOpts) (*provider.GeneratedAsset, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return &provider.GeneratedAsset{Provider: "grok", URL: "https://g/clip.mp4"}, nil
}

func (f *fakeGenerator) Close() {}

type fakeFactory struct {
	analyzer  *fakeAnalyzer
	generator *fakeGenerator
}

func (f *fakeFactory) NewAnalyzer(context.Context, string) (provider.Analyzer, error) {
	return f.analyzer, nil
}

func (f *fakeFactory) NewGenerator(context.Context, string) (provider.Generator, error) {
	return f.generator, nil
}

func newTestService(factory orchestrator.AdapterFactory) *Service {
	orch := orchestrator.New(factory, nil, zap.NewNop())
	return NewService(factory, orch, zap.NewNop())
}

func TestAnalyzeBrowser(t *testing.T) {
	t.Run("success envelope", func(t *testing.T) {
		svc := newTestService(&fakeFactory{analyzer: &fakeAnalyzer{text: "red dress"}})
		resp := svc.AnalyzeBrowser(context.Background(), "grok", []string{"a.png"}, "describe")

		assert.True(t, resp.Success)
		require.NotNil(t, resp.Result)
		assert.Equal(t, "red dress", resp.Result.Text)
		assert.Empty(t, resp.Error)
	})

	t.Run("empty prompt falls back to the default", func(t *testing.T) {
		analyzer := &fakeAnalyzer{text: "red dress"}
		svc := newTestService(&fakeFactory{analyzer: analyzer})
		resp := svc.AnalyzeBrowser(context.Background(), "grok", []string{"a.png"}, "")

		assert.True(t, resp.Success)
		assert.Equal(t, provider.DefaultAnalysisPrompt, analyzer.lastPrompt)
	})

	t.Run("supplied prompt passes through unchanged", func(t *testing.T) {
		analyzer := &fakeAnalyzer{text: "red dress"}
		svc := newTestService(&fakeFactory{analyzer: analyzer})
		svc.AnalyzeBrowser(context.Background(), "grok", []string{"a.png"}, "what fabric is this")

		assert.Equal(t, "what fabric is this", analyzer.lastPrompt)
	})

	t.Run("failure becomes error string", func(t *testing.T) {
		svc := newTestService(&fakeFactory{
			analyzer: &fakeAnalyzer{err: &provider.TimeoutError{Provider: "grok", Op: "poll"}},
		})
		resp := svc.AnalyzeBrowser(context.Background(), "grok", []string{"a.png"}, "describe")

		assert.False(t, resp.Success)
		assert.Nil(t, resp.Result)
		assert.Contains(t, resp.Error, "did not complete")
	})
}

func TestGenerateImageBrowser(t *testing.T) {
	svc := newTestService(&fakeFactory{generator: &fakeGenerator{}})
	resp := svc.GenerateImageBrowser(context.Background(), "grok", "a dress", provider.GenerateOpts{})

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Asset)
	assert.Equal(t, "https://g/img.png", resp.Asset.URL)
}

func TestFullWorkflow(t *testing.T) {
	t.Run("image plus video", func(t *testing.T) {
		svc := newTestService(&fakeFactory{
			analyzer:  &fakeAnalyzer{text: "denim jacket"},
			generator: &fakeGenerator{},
		})
		resp := svc.FullWorkflow(context.Background(), "grok", []string{"a.png", "b.png"},
			FullWorkflowOpts{Prompt: "describe", IncludeVideo: true})

		assert.True(t, resp.Success)
		assert.NotNil(t, resp.Analysis)
		assert.NotNil(t, resp.Image)
		assert.NotNil(t, resp.Video)
	})

	t.Run("omitted prompt never reaches the adapter empty", func(t *testing.T) {
		analyzer := &fakeAnalyzer{text: "denim jacket"}
		svc := newTestService(&fakeFactory{
			analyzer:  analyzer,
			generator: &fakeGenerator{},
		})
		resp := svc.FullWorkflow(context.Background(), "grok", []string{"a.png"}, FullWorkflowOpts{})

		assert.True(t, resp.Success)
		assert.Equal(t, provider.DefaultAnalysisPrompt, analyzer.lastPrompt)
	})

	t.Run("video failure degrades instead of failing", func(t *testing.T) {
		svc := newTestService(&fakeFactory{
			analyzer:  &fakeAnalyzer{text: "denim jacket"},
			generator: &fakeGenerator{videoErr: errors.New("flaky")},
		})
		resp := svc.FullWorkflow(context.Background(), "grok", []string{"a.png"},
			FullWorkflowOpts{IncludeVideo: true})

		assert.True(t, resp.Success)
		assert.NotNil(t, resp.Image)
		assert.Nil(t, resp.Video)
	})

	t.Run("analysis failure fails the workflow", func(t *testing.T) {
		svc := newTestService(&fakeFactory{
			analyzer:  &fakeAnalyzer{err: errors.New("no editor")},
			generator: &fakeGenerator{},
		})
		resp := svc.FullWorkflow(context.Background(), "grok", []string{"a.png"}, FullWorkflowOpts{})

		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "analysis failed")
		assert.Nil(t, resp.Image)
	})
}

func TestRunMultipleFlows_EmptyRequest(t *testing.T) {
	svc := newTestService(&fakeFactory{})
	resp := svc.RunMultipleFlows(context.Background(), nil, "c.png", "g.png", orchestrator.RunOpts{})

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestRunMultipleFlows(t *testing.T) {
	svc := newTestService(&fakeFactory{
		analyzer:  &fakeAnalyzer{text: "look"},
		generator: &fakeGenerator{},
	})
	resp := svc.RunMultipleFlows(context.Background(), []string{"grok-grok"},
		"c.png", "g.png", orchestrator.RunOpts{ImageCount: 1})

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Batch)
	require.Len(t, resp.Batch.Results, 1)
	assert.Equal(t, orchestrator.StatusSuccess, resp.Batch.Results[0].Status)
}
