// File: internal/orchestrator/flow.go
package orchestrator

import (
	"fmt"
	"time"

	"github.com/outfitlab/tryon-cli/internal/provider"
	"github.com/outfitlab/tryon-cli/internal/uploader"
)

// FlowType pairs an analysis provider with a generation provider. Catalog
// entries are immutable configuration, not runtime state.
type FlowType struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	AnalysisProvider   string `json:"analysisProvider"`
	GenerationProvider string `json:"generationProvider"`
	RequiresLogin      bool   `json:"requiresLogin"`
}

// FlowTypes is the static flow catalog.
var FlowTypes = []FlowType{
	{ID: "grok-grok", Name: "Grok analysis + Grok generation",
		AnalysisProvider: provider.NameGrok, GenerationProvider: provider.NameGrok},
	{ID: "zai-zai", Name: "Z.AI analysis + Z.AI generation",
		AnalysisProvider: provider.NameZai, GenerationProvider: provider.NameZai,
		RequiresLogin: true},
	{ID: "grok-flow", Name: "Grok analysis + Google Flow generation",
		AnalysisProvider: provider.NameGrok, GenerationProvider: provider.NameGoogleFlow,
		RequiresLogin: true},
	{ID: "zai-flow", Name: "Z.AI analysis + Google Flow generation",
		AnalysisProvider: provider.NameZai, GenerationProvider: provider.NameGoogleFlow,
		RequiresLogin: true},
	{ID: "zai-grok", Name: "Z.AI analysis + Grok generation",
		AnalysisProvider: provider.NameZai, GenerationProvider: provider.NameGrok,
		RequiresLogin: true},
}

// FlowTypeByID resolves a catalog entry.
func FlowTypeByID(id string) (FlowType, error) {
	for _, ft := range FlowTypes {
		if ft.ID == id {
			return ft, nil
		}
	}
	return FlowType{}, fmt.Errorf("unknown flow type %q", id)
}

// Status is the lifecycle state of a FlowRun.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Stats aggregates the outcome of one or more flows.
type Stats struct {
	TotalImages           int `json:"totalImages"`
	SuccessfulGenerations int `json:"successfulGenerations"`
	SuccessfulUploads     int `json:"successfulUploads"`
	Failures              int `json:"failures"`
}

func (s *Stats) add(other Stats) {
	s.TotalImages += other.TotalImages
	s.SuccessfulGenerations += other.SuccessfulGenerations
	s.SuccessfulUploads += other.SuccessfulUploads
	s.Failures += other.Failures
}

// ImageOutcome records one generation slot: either an asset (optionally
// hosted) or a structured error.
type ImageOutcome struct {
	Index     int                      `json:"index"`
	Asset     *provider.GeneratedAsset `json:"asset,omitempty"`
	Hosted    *uploader.HostedAsset    `json:"hosted,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorKind string                   `json:"errorKind,omitempty"`
}

// FlowRun is the result of one end-to-end flow invocation.
type FlowRun struct {
	ID         string                   `json:"id"`
	FlowType   string                   `json:"flowType"`
	StartedAt  time.Time                `json:"startedAt"`
	FinishedAt time.Time                `json:"finishedAt"`
	Status     Status                   `json:"status"`
	Analysis   *provider.AnalysisResult `json:"analysis,omitempty"`
	Images     []ImageOutcome           `json:"images"`
	Stats      Stats                    `json:"stats"`
	Error      string                   `json:"error,omitempty"`
}

// BatchResult is the aggregate of a concurrent multi-flow run.
type BatchResult struct {
	Results []*FlowRun `json:"results"`
	Stats   Stats      `json:"stats"`
}

// RunOpts tunes a flow invocation.
type RunOpts struct {
	// ImageCount is how many images to generate per flow.
	ImageCount int
	// AnalysisPrompt overrides the default try-on analysis prompt.
	AnalysisPrompt string
	// Download fetches generated assets locally (required for uploading).
	Download  bool
	OutputDir string
}
