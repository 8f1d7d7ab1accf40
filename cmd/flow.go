// File: cmd/flow.go
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/outfitlab/tryon-cli/internal/orchestrator"
)

// splitFlowIDs accepts both repeated args and comma-separated lists, so
// `flow run grok-grok zai-zai` and `flows grok-grok,zai-zai` are equivalent.
func splitFlowIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// newFlowCmd creates the `flow` command group: `flow list` prints the catalog,
// `flow run` executes one or more flow types concurrently.
func newFlowCmd() *cobra.Command {
	flowCmd := &cobra.Command{
		Use:   "flow",
		Short: "Runs end-to-end try-on flows pairing an analysis provider with a generation provider",
	}
	flowCmd.AddCommand(newFlowListCmd())
	flowCmd.AddCommand(newFlowRunCmd())
	return flowCmd
}

func newFlowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists the available flow types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), orchestrator.FlowTypes)
		},
	}
}

func newFlowRunCmd() *cobra.Command {
	var (
		characterPath string
		clothingPath  string
		imageCount    int
		prompt        string
		download      bool
		outputDir     string
	)

	runCmd := &cobra.Command{
		Use:   "run [flow-type...]",
		Short: "Runs the named flow types concurrently against a character and clothing image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := splitFlowIDs(args)
			for _, id := range ids {
				if _, err := orchestrator.FlowTypeByID(id); err != nil {
					return err
				}
			}
			if characterPath == "" || clothingPath == "" {
				return fmt.Errorf("--character and --clothing are both required")
			}
			for _, img := range []string{characterPath, clothingPath} {
				if _, err := os.Stat(img); err != nil {
					return fmt.Errorf("image %q is not readable: %w", img, err)
				}
			}

			svc, _, err := buildService()
			if err != nil {
				return err
			}

			opts := orchestrator.RunOpts{
				ImageCount:     imageCount,
				AnalysisPrompt: prompt,
				Download:       download,
				OutputDir:      outputDir,
			}
			if opts.ImageCount <= 0 {
				opts.ImageCount = cfg.Flow.ImageCount
			}
			if opts.OutputDir == "" {
				opts.OutputDir = cfg.Flow.OutputDir
			}

			resp := svc.RunMultipleFlows(cmd.Context(), ids, characterPath, clothingPath, opts)
			if err := printResult(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("flow run failed: %s", resp.Error)
			}
			// Partial failures are reported in the envelope; the exit code only
			// goes nonzero when every flow failed.
			if resp.Batch != nil && len(resp.Batch.Results) > 0 {
				failed := 0
				for _, run := range resp.Batch.Results {
					if run.Status == orchestrator.StatusFailed {
						failed++
					}
				}
				if failed == len(resp.Batch.Results) {
					return fmt.Errorf("all %d flows failed", failed)
				}
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&characterPath, "character", "", "path to the character image")
	runCmd.Flags().StringVar(&clothingPath, "clothing", "", "path to the clothing image")
	runCmd.Flags().IntVarP(&imageCount, "count", "n", 0, "images to generate per flow (default from config)")
	runCmd.Flags().StringVar(&prompt, "prompt", "", "analysis prompt override")
	runCmd.Flags().BoolVar(&download, "download", false, "download generated assets locally")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for downloaded assets (default from config)")
	return runCmd
}
