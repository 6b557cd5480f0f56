package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"duty-roster/internal/dto"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
)

// PreviewCmd 预览某月排班，不写入数据库
func PreviewCmd(configPath *string) *cobra.Command {
	var (
		year   int
		month  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "预览月度排班（不落库）",
		Example: `  rosterctl preview --year 2026 --month 2
  rosterctl preview --year 2026 --month 2 -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputTable && output != outputYAML {
				return fmt.Errorf("不支持的输出格式 %q，可选 table 或 yaml", output)
			}
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.services().Generation.GenerateMonth(cmd.Context(), &dto.GenerateMonthRequest{
				Year:  year,
				Month: month,
				Mode:  dto.ModePreview,
			}, callerID)
			if err != nil {
				return err
			}
			if output == outputYAML {
				return renderYAML(cmd.OutOrStdout(), res)
			}
			return renderPreview(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "年份")
	cmd.Flags().IntVar(&month, "month", 0, "月份 1-12")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "输出格式 table|yaml")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

// dutyColors 班次代码着色；未列出的代码原样输出
var dutyColors = map[byte]*color.Color{
	'D': color.New(color.FgGreen),
	'E': color.New(color.FgYellow),
	'N': color.New(color.FgBlue),
	'A': color.New(color.FgCyan),
	'O': color.New(color.Faint),
}

func colorizeDuties(duties string) string {
	var b strings.Builder
	for i := 0; i < len(duties); i++ {
		if c, ok := dutyColors[duties[i]]; ok {
			b.WriteString(c.Sprint(string(duties[i])))
			continue
		}
		b.WriteByte(duties[i])
	}
	return b.String()
}

// renderPreview 表格输出：每人一行，班次按日连续排列
func renderPreview(w io.Writer, res *dto.GenerationResult) error {
	fmt.Fprintf(w, "%04d-%02d  共 %d 天  %d 人  %d 条\n\n",
		res.Year, res.Month, res.Days, len(res.Staff), res.EntryCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "工号\t姓名\t规则\t班次")
	for _, s := range res.Staff {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.EmployeeNo, s.Name, s.Rule, colorizeDuties(s.Duties))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Warnings) > 0 {
		warn := color.New(color.FgYellow)
		fmt.Fprintln(w)
		for _, wn := range res.Warnings {
			fmt.Fprintf(w, "%s %s: %s\n", warn.Sprint("!"), wn.StaffID, wn.Message)
		}
	}
	return nil
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
