// File: cmd/generate.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outfitlab/tryon-cli/internal/api"
	"github.com/outfitlab/tryon-cli/internal/provider"
)

// newGenerateCmd creates the `generate` command group with `image` and `video`
// subcommands.
func newGenerateCmd() *cobra.Command {
	var (
		providerName string
		prompt       string
		download     bool
		outputDir    string
	)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generates try-on media from a text prompt on a provider",
	}
	generateCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "grok", "generation provider (grok, zai, googleflow)")
	generateCmd.PersistentFlags().StringVar(&prompt, "prompt", "", "generation prompt")
	generateCmd.PersistentFlags().BoolVar(&download, "download", false, "download the generated asset locally")
	generateCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "directory for downloaded assets (default from config)")

	run := func(cmd *cobra.Command, video bool) error {
		if prompt == "" {
			return fmt.Errorf("--prompt is required")
		}
		svc, _, err := buildService()
		if err != nil {
			return err
		}

		opts := provider.GenerateOpts{Download: download, OutputDir: outputDir}
		if opts.OutputDir == "" {
			opts.OutputDir = cfg.Flow.OutputDir
		}

		var resp api.GenerationResponse
		if video {
			resp = svc.GenerateVideoBrowser(cmd.Context(), providerName, prompt, opts)
		} else {
			resp = svc.GenerateImageBrowser(cmd.Context(), providerName, prompt, opts)
		}
		if err := printResult(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("generation failed: %s", resp.Error)
		}
		return nil
	}

	generateCmd.AddCommand(&cobra.Command{
		Use:   "image",
		Short: "Generates a single image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false)
		},
	})
	generateCmd.AddCommand(&cobra.Command{
		Use:   "video",
		Short: "Generates a single video clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true)
		},
	})
	return generateCmd
}
