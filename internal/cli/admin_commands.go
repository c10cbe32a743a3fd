package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/admin"
	"github.com/proofback/proofback-cli/internal/constants"
)

// newAdminCmd creates the 'admin' command group.
func newAdminCmd() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator operations (stats, users, activity, toggle, delete)",
		Long: `Administrative commands. These require an administrator account;
other accounts receive a permission error.`,
	}

	adminCmd.AddCommand(newAdminStatsCmd())
	adminCmd.AddCommand(newAdminUsersCmd())
	adminCmd.AddCommand(newAdminActivityCmd())
	adminCmd.AddCommand(newAdminToggleCmd())
	adminCmd.AddCommand(newAdminDeleteCmd())

	return adminCmd
}

func loadAdminController() (*admin.Controller, error) {
	client, sess, err := getAPIClient()
	if err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	controller := admin.NewController(client, nil)
	ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
	defer cancel()
	if err := controller.Refresh(ctx); err != nil {
		return nil, err
	}
	return controller, nil
}

// newAdminStatsCmd creates the 'admin stats' command.
func newAdminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform-wide counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := loadAdminController()
			if err != nil {
				return err
			}

			stats := controller.Stats()
			fmt.Printf("Users:   %d (%d active)\n", stats.TotalUsers, stats.ActiveUsers)
			fmt.Printf("Backups: %d\n", stats.TotalBackups)
			fmt.Printf("Tests:   %d\n", stats.TotalTests)
			return nil
		},
	}
}

// newAdminUsersCmd creates the 'admin users' command.
func newAdminUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the user roster with usage counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := loadAdminController()
			if err != nil {
				return err
			}

			users := controller.Users()
			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tACTIVE\tBACKUPS\tTESTS\tLAST TEST")
			for _, u := range users {
				lastTest := "-"
				if u.LastTest != nil {
					lastTest = u.LastTest.Local().Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%s\n",
					u.ID, u.Email, u.Active, u.BackupCount, u.TestCount, lastTest)
			}
			return w.Flush()
		},
	}
}

// newAdminActivityCmd creates the 'admin activity' command.
func newAdminActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the recent platform activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := loadAdminController()
			if err != nil {
				return err
			}

			activity := controller.Activity()
			if len(activity) == 0 {
				fmt.Println("No recent activity")
				return nil
			}
			if limit > 0 && len(activity) > limit {
				activity = activity[:limit]
			}

			for _, a := range activity {
				line := fmt.Sprintf("%s  %s  %s",
					a.Timestamp.Local().Format(time.Stamp), a.UserEmail, a.Action)
				if a.Detail != "" {
					line += " (" + a.Detail + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 = all)")
	return cmd
}

// newAdminToggleCmd creates the 'admin toggle' command.
func newAdminToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <user-id>",
		Short: "Activate or deactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := loadAdminController()
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := controller.ToggleActive(ctx, args[0]); err != nil {
				return err
			}

			for _, u := range controller.Users() {
				if u.ID == args[0] {
					state := "inactive"
					if u.Active {
						state = "active"
					}
					fmt.Printf("%s is now %s\n", u.Email, state)
					return nil
				}
			}
			fmt.Printf("User %s updated\n", args[0])
			return nil
		},
	}
}

// newAdminDeleteCmd creates the 'admin delete' command.
func newAdminDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Permanently delete a user and all their data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := loadAdminController()
			if err != nil {
				return err
			}

			confirmed := yes
			if !confirmed {
				confirmed, err = promptConfirm(fmt.Sprintf(
					"Permanently delete user %s and ALL their backups and runs?", args[0]))
				if err != nil {
					return err
				}
			}
			if !confirmed {
				fmt.Println("Aborted")
				return nil
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := controller.DeleteUser(ctx, args[0], confirmed); err != nil {
				return err
			}
			fmt.Printf("User %s deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
