package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/api"
	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/constants"
	httpclient "github.com/proofback/proofback-cli/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage proofback-cli configuration",
		Long: `Configuration management commands.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the platform connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

The configuration is saved to ~/.config/proofback/config.
Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or 'config show' to view it.")
					return nil
				}
			}

			fmt.Println("Proofback Configuration Setup")
			fmt.Println("=============================")
			fmt.Println()

			cfg := config.NewConfig()

			url, err := promptLine("Platform URL", constants.DefaultPlatformURL)
			if err != nil {
				return err
			}
			cfg.PlatformURL = url

			useProxy, err := promptConfirm("Configure a proxy?")
			if err != nil {
				return err
			}
			if useProxy {
				fmt.Println()
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")
				mode, err := promptLine("Proxy mode", "system")
				if err != nil {
					return err
				}
				cfg.ProxyMode = mode

				if mode == "basic" || mode == "ntlm" {
					host, err := promptLine("Proxy host", "")
					if err != nil {
						return err
					}
					cfg.ProxyHost = host

					portStr, err := promptLine("Proxy port", "8080")
					if err != nil {
						return err
					}
					if port, err := strconv.Atoi(portStr); err == nil {
						cfg.ProxyPort = port
					}

					user, err := promptLine("Proxy user (optional)", "")
					if err != nil {
						return err
					}
					cfg.ProxyUser = user

					noProxy, err := promptLine("Bypass list (hosts/CIDRs, optional)", "")
					if err != nil {
						return err
					}
					cfg.NoProxy = noProxy
				}
			}

			if err := config.SaveConfig(cfg, configPath); err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("Configuration saved to %s\n", configPath)
			fmt.Println("Next: proofback-cli login")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Platform URL: %s\n", cfg.PlatformURL)

			resolved, source := config.ResolveTokenSource(token, tokenFile, cfg)
			if resolved == "" {
				fmt.Println("Token:        (none - run 'proofback-cli login')")
			} else {
				fmt.Printf("Token:        %s (from %s)\n", maskToken(resolved), source)
			}

			fmt.Printf("Proxy mode:   %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Printf("Proxy:        %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
			}
			if cfg.NoProxy != "" {
				fmt.Printf("No-proxy:     %s\n", cfg.NoProxy)
			}
			return nil
		},
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the platform connection and stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Transport first, so proxy problems are reported separately
			// from credential problems.
			if _, err := httpclient.ConfigureHTTPClient(cfg); err != nil {
				return fmt.Errorf("HTTP client configuration failed: %w", err)
			}

			sess := newSession(cfg)
			if !sess.Authenticated() {
				return config.ErrMissingToken
			}
			client, err := api.NewClient(cfg, sess)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(constants.APIConnectionTestTimeout)
			defer cancel()

			profile, err := client.CurrentUser(ctx)
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Printf("Connection OK - authenticated as %s\n", profile.Email)
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			fmt.Println(path)
			return nil
		},
	}
}

// maskToken shows just enough of a token to identify it.
func maskToken(t string) string {
	if len(t) <= 8 {
		return "****"
	}
	return t[:4] + "..." + t[len(t)-4:]
}
