package cli

import (
	"fmt"

	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/messaging/kafka"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("with-employees", false, "Also create the employees projection table (local development only)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the leave tables",
	Long: `Runs gorm AutoMigrate for leave_types, leave_balances, leave_requests
and outbox_events. The employees table is owned by the employee service and
is only created when --with-employees is set.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	withEmployees, _ := cmd.Flags().GetBool("with-employees")

	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	models := []any{
		&leave.LeaveType{},
		&leave.LeaveBalance{},
		&leave.LeaveRequest{},
		&kafka.OutboxEvent{},
	}
	if withEmployees {
		models = append([]any{&leave.Employee{}}, models...)
	}

	if err := db.WithContext(cmd.Context()).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(models))
	return nil
}
