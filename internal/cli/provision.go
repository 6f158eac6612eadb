package cli

import (
	"fmt"
	"time"

	"go-hris-leave/internal/leave"
	"go-hris-leave/internal/shared/connection"
	"go-hris-leave/internal/shared/txmanager"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().String("org", "", "Organization id")
	provisionCmd.Flags().String("employee", "", "Employee id")
	provisionCmd.Flags().Int("year", time.Now().UTC().Year(), "Leave year to open")
	provisionCmd.Flags().Bool("skip-cache", false, "Do not invalidate cached balances in redis")
	_ = provisionCmd.MarkFlagRequired("org")
	_ = provisionCmd.MarkFlagRequired("employee")
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Open leave balances for an employee",
	Long: `Creates one balance row per leave type of the organization for the given
employee and year. Existing rows are left untouched, so the command can be
re-run safely. Unused days of the previous year are carried over up to each
leave type's maximum.`,
	Args: cobra.NoArgs,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	orgID, _ := cmd.Flags().GetString("org")
	employeeID, _ := cmd.Flags().GetString("employee")
	year, _ := cmd.Flags().GetInt("year")
	skipCache, _ := cmd.Flags().GetBool("skip-cache")

	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	var cache leave.BalanceCache
	if !skipCache {
		rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.ConnectRetries)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = leave.NewRedisBalanceCache(rdb, cfg.Leave.BalanceCacheTTL)
	}

	tx := txmanager.New(db, txmanager.WithLockTimeout(cfg.Leave.TxLockTimeout))
	provisioner := leave.NewProvisioner(tx, leave.NewRepository(db), cache, zap.L())

	result, err := provisioner.ProvisionYear(cmd.Context(), orgID, employeeID, year)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "employee %s year %d: %d created, %d already present\n",
		result.EmployeeID, result.Year, result.Created, result.Skipped)
	return nil
}
