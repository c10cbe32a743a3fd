package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/models"
	"github.com/proofback/proofback-cli/internal/settings"
)

// newSettingsCmd creates the 'settings' command group.
func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Platform configuration (list, set, reset)",
		Long: `Inspect and change the platform configuration entries.

Values are typed: numbers, booleans and JSON are validated locally
before anything is sent. The server may normalize a value; what you
see after a change is always the server's copy.`,
	}

	settingsCmd.AddCommand(newSettingsListCmd())
	settingsCmd.AddCommand(newSettingsSetCmd())
	settingsCmd.AddCommand(newSettingsResetCmd())

	return settingsCmd
}

func loadSettingsStore() (*settings.Store, error) {
	client, sess, err := getAPIClient()
	if err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	store := settings.NewStore(client, nil)
	ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
	defer cancel()
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// newSettingsListCmd creates the 'settings list' command.
func newSettingsListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List settings grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSettingsStore()
			if err != nil {
				return err
			}

			categories := store.Categories()
			if category != "" {
				categories = []models.SettingCategory{models.SettingCategory(category)}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range categories {
				entries := store.Entries(c)
				if len(entries) == 0 {
					continue
				}
				fmt.Fprintf(w, "[%s]\n", c)
				for _, e := range entries {
					flag := ""
					if !e.Editable {
						flag = " (read-only)"
					}
					fmt.Fprintf(w, "  %s\t%s\t%s%s\n",
						e.Key, e.Type, models.FormatSettingValue(e.Type, e.Value), flag)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Show a single category")
	return cmd
}

// newSettingsSetCmd creates the 'settings set' command.
func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting. The value must match the key's declared type.

Example:
  proofback-cli settings set max_file_size 250
  proofback-cli settings set auto_cleanup true
  proofback-cli settings set allowed_extensions '[".sql",".dump"]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSettingsStore()
			if err != nil {
				return err
			}
			key, raw := args[0], args[1]

			commit, err := store.ShouldCommit(key, raw)
			if err != nil {
				return err
			}
			if !commit {
				fmt.Printf("%s already has that value\n", key)
				return nil
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := store.Update(ctx, key, raw); err != nil {
				return err
			}

			entry, _ := store.Get(key)
			fmt.Printf("%s = %s\n", key, models.FormatSettingValue(entry.Type, entry.Value))
			return nil
		},
	}
}

// newSettingsResetCmd creates the 'settings reset' command.
func newSettingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Restore one setting to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSettingsStore()
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := store.Reset(ctx, args[0]); err != nil {
				return err
			}

			entry, _ := store.Get(args[0])
			fmt.Printf("%s reset to %s\n", args[0], models.FormatSettingValue(entry.Type, entry.Value))
			return nil
		},
	}
}
