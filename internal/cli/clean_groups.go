package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CleanGroupsCmd 清理倒班公式中的重复班组
func CleanGroupsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clean-groups <formula-id>",
		Short: "删除重复班组，每个班组号只保留最早的一行",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.services().Pattern.CleanDuplicates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "公式 %s 已删除 %d 个重复班组\n", args[0], removed)
			return nil
		},
	}
}
