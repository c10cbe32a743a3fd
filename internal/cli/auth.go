package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/api"
	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/session"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token and verify it against the platform",
		Long: `Authenticate against the Proofback platform.

The token is read from --token, or prompted for interactively, then
verified with a profile request and persisted to
~/.config/proofback/token (owner-only permissions).

Example:
  proofback-cli login
  proofback-cli login --token pb-xxxx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			input := token
			if input == "" {
				input, err = promptSecret("Session token: ")
				if err != nil {
					return err
				}
			}
			if input == "" {
				return fmt.Errorf("no token provided")
			}

			// Verify before persisting anything.
			sess := session.New(input, "", nil)
			client, err := api.NewClient(cfg, sess)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(constants.APIConnectionTestTimeout)
			defer cancel()

			profile, err := client.CurrentUser(ctx)
			if err != nil {
				return fmt.Errorf("token verification failed: %w", err)
			}

			tokenPath := config.DefaultTokenPath()
			if tokenPath == "" {
				return fmt.Errorf("cannot determine token path (no home directory)")
			}
			if err := config.WriteTokenFile(tokenPath, input); err != nil {
				return err
			}

			fmt.Printf("Logged in as %s", profile.Email)
			if profile.IsAdmin {
				fmt.Print(" (administrator)")
			}
			fmt.Println()
			fmt.Printf("Token saved to %s\n", tokenPath)
			return nil
		},
	}
	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenPath := config.DefaultTokenPath()
			if tokenPath == "" {
				return fmt.Errorf("cannot determine token path (no home directory)")
			}
			if err := config.RemoveTokenFile(tokenPath); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// newWhoamiCmd creates the 'whoami' command.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			if verbose {
				cfg, _ := loadConfig()
				_, source := config.ResolveTokenSource(token, tokenFile, cfg)
				GetLogger().Debug().Str("source", source).Msg("token resolved")
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			profile, err := client.CurrentUser(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Email: %s\n", profile.Email)
			if profile.DisplayName != "" {
				fmt.Printf("Name:  %s\n", profile.DisplayName)
			}
			fmt.Printf("Admin: %v\n", profile.IsAdmin)
			return nil
		},
	}
}

// contextWithTimeout derives a deadline from the signal-handling root
// context, so Ctrl+C still cancels long requests.
func contextWithTimeout(d time.Duration) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(GetContext(), d)
}
