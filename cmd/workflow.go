// File: cmd/workflow.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/outfitlab/tryon-cli/internal/api"
)

// newWorkflowCmd creates the `workflow` command: analyze, then generate an
// image and optionally a video, all on one provider.
func newWorkflowCmd() *cobra.Command {
	var (
		providerName string
		images       []string
		prompt       string
		includeVideo bool
		download     bool
		outputDir    string
	)

	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Runs the full analyze-then-generate pipeline on one provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(images) == 0 {
				return fmt.Errorf("at least one --image is required")
			}
			for _, img := range images {
				if _, err := os.Stat(img); err != nil {
					return fmt.Errorf("image %q is not readable: %w", img, err)
				}
			}

			svc, _, err := buildService()
			if err != nil {
				return err
			}

			opts := api.FullWorkflowOpts{
				Prompt:       prompt,
				IncludeVideo: includeVideo,
				Download:     download,
				OutputDir:    outputDir,
			}
			if opts.OutputDir == "" {
				opts.OutputDir = cfg.Flow.OutputDir
			}

			resp := svc.FullWorkflow(cmd.Context(), providerName, images, opts)
			if err := printResult(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("workflow failed: %s", resp.Error)
			}
			return nil
		},
	}

	workflowCmd.Flags().StringVarP(&providerName, "provider", "p", "grok", "provider used for every stage")
	workflowCmd.Flags().StringArrayVarP(&images, "image", "i", nil, "path to an input image (repeatable)")
	workflowCmd.Flags().StringVar(&prompt, "prompt", "", "analysis prompt override")
	workflowCmd.Flags().BoolVar(&includeVideo, "video", false, "also generate a video from the analysis")
	workflowCmd.Flags().BoolVar(&download, "download", false, "download generated assets locally")
	workflowCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for downloaded assets (default from config)")
	return workflowCmd
}
