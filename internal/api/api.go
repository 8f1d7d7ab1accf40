// File: internal/api/api.go
// Package api is the inbound facade the HTTP layer calls. Every operation
// returns a plain result object with a success flag; expected failure modes
// (timeouts, provider redesigns, missing logins) never surface as errors.
package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/orchestrator"
	"github.com/outfitlab/tryon-cli/internal/provider"
)

// Service bundles the orchestration entry points behind result-object
// semantics.
type Service struct {
	factory orchestrator.AdapterFactory
	orch    *orchestrator.Orchestrator
	logger  *zap.Logger
}

// NewService builds the facade.
func NewService(factory orchestrator.AdapterFactory, orch *orchestrator.Orchestrator, logger *zap.Logger) *Service {
	return &Service{factory: factory, orch: orch, logger: logger.Named("api")}
}

// AnalysisResponse is the result envelope for analysis calls.
type AnalysisResponse struct {
	Success bool                     `json:"success"`
	Result  *provider.AnalysisResult `json:"result,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// GenerationResponse is the result envelope for generation calls.
type GenerationResponse struct {
	Success bool                     `json:"success"`
	Asset   *provider.GeneratedAsset `json:"asset,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// WorkflowResponse is the result envelope for the full workflow.
type WorkflowResponse struct {
	Success  bool                     `json:"success"`
	Analysis *provider.AnalysisResult `json:"analysis,omitempty"`
	Image    *provider.GeneratedAsset `json:"image,omitempty"`
	Video    *provider.GeneratedAsset `json:"video,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// BatchResponse is the result envelope for multi-flow runs.
type BatchResponse struct {
	Success bool                      `json:"success"`
	Batch   *orchestrator.BatchResult `json:"batch,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// AnalyzeBrowser runs an image analysis on the named provider. An empty
// prompt falls back to the default try-on description prompt.
func (s *Service) AnalyzeBrowser(ctx context.Context, providerName string, imagePaths []string, prompt string) AnalysisResponse {
	if prompt == "" {
		prompt = provider.DefaultAnalysisPrompt
	}

	analyzer, err := s.factory.NewAnalyzer(ctx, providerName)
	if err != nil {
		return AnalysisResponse{Error: err.Error()}
	}
	defer analyzer.Close()

	if err := analyzer.Initialize(ctx); err != nil {
		return AnalysisResponse{Error: err.Error()}
	}
	result, err := analyzer.AnalyzeMultipleImages(ctx, imagePaths, prompt)
	if err != nil {
		return AnalysisResponse{Error: err.Error()}
	}
	return AnalysisResponse{Success: true, Result: result}
}

// GenerateImageBrowser generates one image on the named provider.
func (s *Service) GenerateImageBrowser(ctx context.Context, providerName, prompt string, opts provider.GenerateOpts) GenerationResponse {
	return s.generate(ctx, providerName, prompt, opts, false)
}

// GenerateVideoBrowser generates one video on the named provider.
func (s *Service) GenerateVideoBrowser(ctx context.Context, providerName, prompt string, opts provider.GenerateOpts) GenerationResponse {
	return s.generate(ctx, providerName, prompt, opts, true)
}

func (s *Service) generate(ctx context.Context, providerName, prompt string, opts provider.GenerateOpts, video bool) GenerationResponse {
	generator, err := s.factory.NewGenerator(ctx, providerName)
	if err != nil {
		return GenerationResponse{Error: err.Error()}
	}
	defer generator.Close()

	if err := generator.Initialize(ctx); err != nil {
		return GenerationResponse{Error: err.Error()}
	}

	var asset *provider.GeneratedAsset
	if video {
		asset, err = generator.GenerateVideo(ctx, prompt, opts)
	} else {
		asset, err = generator.GenerateImage(ctx, prompt, opts)
	}
	if err != nil {
		return GenerationResponse{Error: err.Error()}
	}
	return GenerationResponse{Success: true, Asset: asset}
}

// FullWorkflowOpts tunes FullWorkflow.
type FullWorkflowOpts struct {
	Prompt       string
	IncludeVideo bool
	Download     bool
	OutputDir    string
}

// FullWorkflow chains analysis, image generation, and optionally video
// generation on one provider. Each stage gets a fresh browser; a video
// failure degrades the result instead of failing the workflow.
func (s *Service) FullWorkflow(ctx context.Context, providerName string, imagePaths []string, opts FullWorkflowOpts) WorkflowResponse {
	analysis := s.AnalyzeBrowser(ctx, providerName, imagePaths, opts.Prompt)
	if !analysis.Success {
		return WorkflowResponse{Error: fmt.Sprintf("analysis failed: %s", analysis.Error)}
	}

	genOpts := provider.GenerateOpts{Download: opts.Download, OutputDir: opts.OutputDir}
	image := s.GenerateImageBrowser(ctx, providerName, analysis.Result.Text, genOpts)
	if !image.Success {
		return WorkflowResponse{
			Analysis: analysis.Result,
			Error:    fmt.Sprintf("image generation failed: %s", image.Error),
		}
	}

	resp := WorkflowResponse{
		Success:  true,
		Analysis: analysis.Result,
		Image:    image.Asset,
	}
	if opts.IncludeVideo {
		video := s.GenerateVideoBrowser(ctx, providerName, analysis.Result.Text, genOpts)
		if video.Success {
			resp.Video = video.Asset
		} else {
			s.logger.Warn("Video stage failed; returning image-only workflow result.",
				zap.String("provider", providerName), zap.String("error", video.Error))
		}
	}
	return resp
}

// RunMultipleFlows fans out the requested flows concurrently.
func (s *Service) RunMultipleFlows(ctx context.Context, flowTypeIDs []string, characterPath, clothingPath string, opts orchestrator.RunOpts) BatchResponse {
	if len(flowTypeIDs) == 0 {
		return BatchResponse{Error: "no flow types requested"}
	}
	batch := s.orch.RunMultipleFlows(ctx, flowTypeIDs, characterPath, clothingPath, opts)
	return BatchResponse{Success: true, Batch: batch}
}
