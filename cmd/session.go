// File: cmd/session.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/outfitlab/tryon-cli/internal/browser"
	"github.com/outfitlab/tryon-cli/internal/observability"
	"github.com/outfitlab/tryon-cli/internal/provider"
	sessionstore "github.com/outfitlab/tryon-cli/internal/session"
)

// newSessionCmd creates the `session` command group for inspecting, capturing,
// and deleting persisted provider logins.
func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manages persisted provider login sessions",
	}
	sessionCmd.AddCommand(newSessionInfoCmd())
	sessionCmd.AddCommand(newSessionDeleteCmd())
	sessionCmd.AddCommand(newSessionCaptureCmd())
	return sessionCmd
}

func openStore() (*sessionstore.Store, error) {
	return sessionstore.NewStore(cfg.Session.Dir, observability.GetLogger())
}

func validProvider(name string) error {
	if provider.HomeURL(name) == "" {
		return fmt.Errorf("unknown provider %q (known: %v)", name, provider.Names())
	}
	return nil
}

func newSessionInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [provider]",
		Short: "Describes the stored session for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validProvider(args[0]); err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			info := store.GetInfo(args[0])
			if info == nil {
				info = &sessionstore.Info{Provider: args[0]}
			}
			return printResult(cmd.OutOrStdout(), info)
		},
	}
}

func newSessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [provider]",
		Short: "Deletes the stored session for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validProvider(args[0]); err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			removed := store.Delete(args[0])
			return printResult(cmd.OutOrStdout(), map[string]any{
				"provider": args[0],
				"deleted":  removed,
			})
		},
	}
}

func newSessionCaptureCmd() *cobra.Command {
	var wait time.Duration

	captureCmd := &cobra.Command{
		Use:   "capture [provider]",
		Short: "Opens a visible browser on the provider so you can log in, then persists the session",
		Long: `Opens a headful browser window on the provider's site and waits while you
complete the login manually. When the wait elapses, the cookies and local
storage of the live page are captured and written as the provider's session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerName := args[0]
			if err := validProvider(providerName); err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}

			logger := observability.GetLogger()
			ctx := cmd.Context()
			if wait <= 0 {
				wait = cfg.Providers.ManualLoginWait
			}

			// Capture always needs a window the user can interact with.
			browserCfg := cfg.Browser
			browserCfg.Headless = false

			sess, err := browser.Launch(ctx, browserCfg, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			defer sess.Close()

			if err := sess.Navigate(ctx, provider.HomeURL(providerName)); err != nil {
				return fmt.Errorf("failed to open %s: %w", providerName, err)
			}

			logger.Info("Browser is open. Log in to the provider now.",
				zap.String("provider", providerName),
				zap.Duration("window", wait))

			clock := browser.SystemClock()
			deadline := clock.Now().Add(wait)
			for clock.Now().Before(deadline) {
				step := cfg.Providers.LoginCheckEvery
				if remaining := deadline.Sub(clock.Now()); remaining < step {
					step = remaining
				}
				if err := clock.Sleep(ctx, step); err != nil {
					return err
				}
				logger.Info("Waiting for manual login.",
					zap.Duration("remaining", deadline.Sub(clock.Now()).Round(time.Second)))
			}

			state, err := sess.CaptureState(ctx)
			if err != nil {
				return fmt.Errorf("failed to capture browser state: %w", err)
			}
			if len(state.Cookies) == 0 {
				return fmt.Errorf("no cookies present after the login window; session not saved")
			}
			if err := store.Save(providerName, state); err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), store.GetInfo(providerName))
		},
	}

	captureCmd.Flags().DurationVar(&wait, "wait", 0, "how long to keep the login window open (default from config)")
	return captureCmd
}
