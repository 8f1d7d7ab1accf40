// File: internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outfitlab/tryon-cli/internal/provider"
	"github.com/outfitlab/tryon-cli/internal/uploader"
)

// AdapterFactory constructs provider adapters, each owning a fresh browser.
type AdapterFactory interface {
	NewAnalyzer(ctx context.Context, providerName string) (provider.Analyzer, error)
	NewGenerator(ctx context.Context, providerName string) (provider.Generator, error)
}

// Orchestrator runs analysis-then-generation flows and aggregates outcomes
// without letting one failure abort a batch.
type Orchestrator struct {
	factory AdapterFactory
	host    uploader.Host
	logger  *zap.Logger
}

// New builds an Orchestrator. host may be nil to skip the hosting step.
func New(factory AdapterFactory, host uploader.Host, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		factory: factory,
		host:    host,
		logger:  logger.Named("orchestrator"),
	}
}

// RunSingleFlow executes one flow end-to-end: analyze both inputs, then
// generate ImageCount images on fresh adapter instances, then hand every
// downloaded asset to the asset host. Generation and upload failures become
// per-item records; an analysis failure fails the whole flow.
func (o *Orchestrator) RunSingleFlow(ctx context.Context, flowTypeID, characterPath, clothingPath string, opts RunOpts) (*FlowRun, error) {
	run := &FlowRun{
		ID:        uuid.New().String(),
		FlowType:  flowTypeID,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}
	logger := o.logger.With(
		zap.String("flow_run_id", run.ID),
		zap.String("flow_type", flowTypeID))

	ft, err := FlowTypeByID(flowTypeID)
	if err != nil {
		return o.failRun(run, err), err
	}
	if opts.ImageCount < 1 {
		opts.ImageCount = 1
	}
	if opts.AnalysisPrompt == "" {
		opts.AnalysisPrompt = provider.DefaultAnalysisPrompt
	}
	run.Stats.TotalImages = opts.ImageCount

	analysis, err := o.analyze(ctx, ft, characterPath, clothingPath, opts.AnalysisPrompt, logger)
	if err != nil {
		err = fmt.Errorf("analysis step failed: %w", err)
		return o.failRun(run, err), err
	}
	run.Analysis = analysis

	genPrompt := buildGenerationPrompt(analysis.Text)
	for i := 0; i < opts.ImageCount; i++ {
		outcome := o.generateOne(ctx, ft, genPrompt, i, opts, logger)
		if outcome.Asset != nil {
			run.Stats.SuccessfulGenerations++
		} else {
			run.Stats.Failures++
		}
		run.Images = append(run.Images, outcome)
	}

	o.uploadAssets(ctx, run, logger)

	run.FinishedAt = time.Now()
	run.Status = StatusSuccess
	logger.Info("Flow complete.",
		zap.Int("generated", run.Stats.SuccessfulGenerations),
		zap.Int("uploaded", run.Stats.SuccessfulUploads),
		zap.Int("failures", run.Stats.Failures))
	return run, nil
}

// analyze runs the analysis adapter, guaranteeing teardown.
func (o *Orchestrator) analyze(ctx context.Context, ft FlowType, characterPath, clothingPath, prompt string, logger *zap.Logger) (*provider.AnalysisResult, error) {
	analyzer, err := o.factory.NewAnalyzer(ctx, ft.AnalysisProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s analyzer: %w", ft.AnalysisProvider, err)
	}
	defer analyzer.Close()

	if err := analyzer.Initialize(ctx); err != nil {
		return nil, err
	}
	logger.Info("Running analysis.", zap.String("provider", ft.AnalysisProvider))
	return analyzer.AnalyzeMultipleImages(ctx, []string{characterPath, clothingPath}, prompt)
}

// generateOne runs one generation slot on a fresh adapter so a wedged browser
// for image k cannot poison image k+1.
func (o *Orchestrator) generateOne(ctx context.Context, ft FlowType, prompt string, index int, opts RunOpts, logger *zap.Logger) ImageOutcome {
	outcome := ImageOutcome{Index: index}

	generator, err := o.factory.NewGenerator(ctx, ft.GenerationProvider)
	if err != nil {
		return o.recordError(outcome, fmt.Errorf("failed to construct %s generator: %w",
			ft.GenerationProvider, err), logger)
	}
	defer generator.Close()

	if err := generator.Initialize(ctx); err != nil {
		return o.recordError(outcome, err, logger)
	}

	logger.Info("Generating image.",
		zap.String("provider", ft.GenerationProvider), zap.Int("index", index))
	asset, err := generator.GenerateImage(ctx, prompt, provider.GenerateOpts{
		Download:  opts.Download,
		OutputDir: opts.OutputDir,
	})
	if err != nil {
		return o.recordError(outcome, err, logger)
	}

	outcome.Asset = asset
	return outcome
}

func (o *Orchestrator) recordError(outcome ImageOutcome, err error, logger *zap.Logger) ImageOutcome {
	outcome.Error = err.Error()
	outcome.ErrorKind = provider.KindOf(err).String()
	logger.Warn("Image generation slot failed.",
		zap.Int("index", outcome.Index),
		zap.String("kind", outcome.ErrorKind),
		zap.Error(err))
	return outcome
}

// uploadAssets forwards every downloaded asset to the external host,
// recording per-asset success or failure.
func (o *Orchestrator) uploadAssets(ctx context.Context, run *FlowRun, logger *zap.Logger) {
	if o.host == nil {
		return
	}
	for i := range run.Images {
		outcome := &run.Images[i]
		if outcome.Asset == nil || outcome.Asset.LocalPath == "" {
			continue
		}
		hosted, err := o.host.Upload(ctx, outcome.Asset.LocalPath)
		if err != nil {
			run.Stats.Failures++
			outcome.Error = err.Error()
			outcome.ErrorKind = provider.KindOf(err).String()
			logger.Warn("Asset upload failed.",
				zap.Int("index", outcome.Index), zap.Error(err))
			continue
		}
		outcome.Hosted = hosted
		run.Stats.SuccessfulUploads++
	}
}

func (o *Orchestrator) failRun(run *FlowRun, err error) *FlowRun {
	run.Status = StatusFailed
	run.Error = err.Error()
	run.FinishedAt = time.Now()
	return run
}

// RunMultipleFlows launches every requested flow concurrently, each with its
// own browsers end-to-end, and aggregates after all settle. A flow failure is
// converted into a failed FlowRun; the batch always resolves.
func (o *Orchestrator) RunMultipleFlows(ctx context.Context, flowTypeIDs []string, characterPath, clothingPath string, opts RunOpts) *BatchResult {
	results := make([]*FlowRun, len(flowTypeIDs))

	var g errgroup.Group
	for i, id := range flowTypeIDs {
		g.Go(func() error {
			run, err := o.RunSingleFlow(ctx, id, characterPath, clothingPath, opts)
			if err != nil && run == nil {
				run = &FlowRun{
					ID:         uuid.New().String(),
					FlowType:   id,
					StartedAt:  time.Now(),
					FinishedAt: time.Now(),
					Status:     StatusFailed,
					Error:      err.Error(),
				}
			}
			results[i] = run
			return nil
		})
	}
	// Goroutines never return errors; failures live in the FlowRuns.
	_ = g.Wait()

	batch := &BatchResult{Results: results}
	for _, run := range results {
		batch.Stats.add(run.Stats)
	}
	o.logger.Info("Batch complete.",
		zap.Int("flows", len(results)),
		zap.Int("generated", batch.Stats.SuccessfulGenerations),
		zap.Int("failures", batch.Stats.Failures))
	return batch
}

// buildGenerationPrompt turns the analysis text into a generation prompt.
func buildGenerationPrompt(analysisText string) string {
	const limit = 1500
	if len(analysisText) > limit {
		analysisText = analysisText[:limit]
	}
	return "Photorealistic fashion photo. " + analysisText
}
