// File: cmd/analyze.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	var (
		providerName string
		images       []string
		prompt       string
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyzes one or more outfit images on a provider and prints the description",
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

			resp := svc.AnalyzeBrowser(cmd.Context(), providerName, images, prompt)
			if err := printResult(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("analysis failed: %s", resp.Error)
			}
			return nil
		},
	}

	analyzeCmd.Flags().StringVarP(&providerName, "provider", "p", "grok", "analysis provider (grok, zai)")
	analyzeCmd.Flags().StringArrayVarP(&images, "image", "i", nil, "path to an input image (repeatable)")
	analyzeCmd.Flags().StringVar(&prompt, "prompt", "", "analysis prompt sent alongside the images")
	return analyzeCmd
}
