package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"duty-roster/pkg/database"
)

// MigrateCmd 执行数据库迁移
func MigrateCmd(configPath *string) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Long: `默认将数据库升级到最新版本；--down 回滚最近一次迁移。

Examples:
  rosterctl migrate
  rosterctl migrate --down`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if down {
				if err := database.RollbackMigration(a.sqlDB, a.logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "已回滚一个迁移版本")
				return nil
			}
			if err := database.RunMigrations(a.sqlDB, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "数据库已是最新版本")
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "回滚最近一次迁移")
	return cmd
}
