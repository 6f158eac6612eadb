package cli

import (
	"fmt"

	"go-hris-leave/internal/leave"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Bool("half-day", false, "Count a single-day range as half a day")
}

var previewCmd = &cobra.Command{
	Use:   "preview START_DATE END_DATE",
	Short: "Count the working days a leave range would charge",
	Long:  `Counts Monday to Friday days between two YYYY-MM-DD dates, inclusive. Public holidays are not excluded.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	halfDay, _ := cmd.Flags().GetBool("half-day")

	resp, err := leave.PreviewDays(leave.PreviewDaysRequest{
		StartDate: args[0],
		EndDate:   args[1],
		HalfDay:   halfDay,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s to %s: %s days\n", resp.StartDate, resp.EndDate, resp.Days)
	return nil
}
