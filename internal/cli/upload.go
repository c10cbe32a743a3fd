package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/progress"
	"github.com/proofback/proofback-cli/internal/upload"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <backup-file>",
		Short: "Upload a database backup for validation",
		Long: `Upload a database backup and create a validation run.

The file is checked locally first: it must be at most 100 MiB and end
in .sql, .dump or .backup. The upload cannot be resumed or retried
automatically; run the command again on failure.

Example:
  proofback-cli upload ./nightly/orders.sql
  proofback-cli upload ./prod.dump --quiet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			var reporter progress.Reporter = progress.NewNoOpProgress()
			var bar *progress.UploadBar
			if !quiet {
				bar = progress.NewUploadBar(args[0])
				reporter = bar
			}

			controller := upload.NewController(client, nil)
			run, err := controller.Submit(GetContext(), args[0], reporter)
			if bar != nil {
				bar.Wait()
			}
			if err != nil {
				return err
			}

			fmt.Printf("Upload complete. Run %s created (status: %s)\n", run.ID, run.Status)
			fmt.Printf("Track it with: proofback-cli runs show %s\n", run.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the progress bar")
	return cmd
}
