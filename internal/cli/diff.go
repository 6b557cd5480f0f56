package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"duty-roster/internal/dto"
)

// DiffCmd 比较同一月份的两个版本
func DiffCmd(configPath *string) *cobra.Command {
	var (
		refresh bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "diff <base-version-id> <version-id>",
		Short: "比较两个排班版本",
		Long: `以第一个版本为基准列出第二个版本的新增、修改与删除。

两个版本必须属于同一月份。`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputTable && output != outputYAML {
				return fmt.Errorf("不支持的输出格式 %q，可选 table 或 yaml", output)
			}
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.services().Diff.Diff(cmd.Context(), args[0], args[1], refresh)
			if err != nil {
				return err
			}
			if output == outputYAML {
				return renderYAML(cmd.OutOrStdout(), res)
			}
			return renderDiff(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "忽略缓存重新计算")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "输出格式 table|yaml")
	return cmd
}

func formatCell(c *dto.DutyCell) string {
	if c == nil {
		return "-"
	}
	if c.AreaCode == "" {
		return c.DutyCode
	}
	return c.DutyCode + "@" + c.AreaCode
}

// renderDiff 按新增、修改、删除分段输出
func renderDiff(w io.Writer, res *dto.DiffResponse) error {
	fmt.Fprintf(w, "%04d-%02d  %s → %s\n", res.Year, res.Month, res.BaseVersionID, res.VersionID)
	if len(res.Added)+len(res.Modified)+len(res.Deleted) == 0 {
		fmt.Fprintln(w, color.New(color.FgGreen).Sprint("两个版本一致"))
		return nil
	}

	sections := []struct {
		title   string
		c       *color.Color
		entries []dto.DiffEntry
	}{
		{"新增", color.New(color.FgGreen), res.Added},
		{"修改", color.New(color.FgYellow), res.Modified},
		{"删除", color.New(color.FgRed), res.Deleted},
	}
	for _, sec := range sections {
		if len(sec.entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", sec.c.Sprint(sec.title), len(sec.entries))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, e := range sec.entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t→\t%s\n", e.StaffID, e.Date, formatCell(e.Before), formatCell(e.After))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
