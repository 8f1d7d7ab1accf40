// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/api"
	"github.com/outfitlab/tryon-cli/internal/config"
	"github.com/outfitlab/tryon-cli/internal/observability"
	"github.com/outfitlab/tryon-cli/internal/orchestrator"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
	"github.com/outfitlab/tryon-cli/internal/uploader"
)

var (
	cfgFile string
	// cfg is populated by PersistentPreRunE before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tryon",
	Short: "Tryon drives AI chat providers through a real browser to analyze outfits and generate try-on media.",
	// Version is dynamically set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// This runs before any command, setting up config and logging.
		if err := initializeConfig(); err != nil {
			return err
		}

		loaded, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			// Initialize a fallback logger so the failure is at least visible.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "tryon-cli"})
			return err
		}
		cfg = loaded

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting tryon", zap.String("version", Version))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./tryon.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newWorkflowCmd())
	rootCmd.AddCommand(newFlowCmd())
	rootCmd.AddCommand(newSessionCmd())

	// Top-level shorthand for `flow run` with comma-separated flow types.
	flowsCmd := newFlowRunCmd()
	flowsCmd.Use = "flows [flow-type,flow-type...]"
	flowsCmd.Short = "Shorthand for `flow run`"
	rootCmd.AddCommand(flowsCmd)
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tryon")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TRYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}
	return nil
}

// buildService wires the production dependency graph for a subcommand run.
func buildService() (*api.Service, *sessionstore.Store, error) {
	logger := observability.GetLogger()

	store, err := sessionstore.NewStore(cfg.Session.Dir, logger)
	if err != nil {
		return nil, nil, err
	}

	var host uploader.Host
	if cfg.Upload.Endpoint != "" {
		host, err = uploader.NewHTTPHost(cfg.Upload, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	factory := orchestrator.NewBrowserFactory(cfg, store, logger)
	orch := orchestrator.New(factory, host, logger)
	return api.NewService(factory, orch, logger), store, nil
}
