package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"duty-roster/internal/rotation"
)

// ErrExportGenerateFail 生成 Excel 文件失败
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 格式：单个 Sheet（YYYY-MM），前两列为姓名与工号，其后每天一列。
type ExportService interface {
	ExportVersion(ctx context.Context, versionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	snapshots SnapshotService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(snapshots SnapshotService, logger *zap.Logger) ExportService {
	return &exportService{snapshots: snapshots, logger: logger}
}

var weekdayNames = [7]string{"一", "二", "三", "四", "五", "六", "日"}

// ═══════════════════════════════════════════════════════════
// ExportVersion 导出版本排班为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题（月份、版本号、状态）
//   - 第 2 行：日期；第 3 行：星期
//   - 第 4 行起：每人一行，休息单元格浅色底纹
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportVersion(ctx context.Context, versionID string) (*bytes.Buffer, string, error) {
	grid, err := s.snapshots.Entries(ctx, versionID)
	if err != nil {
		return nil, "", err
	}
	v := grid.Version
	month := rotation.Month{Year: v.Year, Month: time.Month(v.Month)}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := month.String()
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 12)
	if grid.Days > 0 {
		f.SetColWidth(sheetName, colName(2), colName(1+grid.Days), 4)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	offStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#EDEDED"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	// 标题行
	lastCol := colName(1 + grid.Days)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 排班表（第 %d 版，%s）", month.String(), v.VersionNo, statusLabel(v.Status)))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", cell(lastCol, 1), headerStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "姓名")
	f.SetCellValue(sheetName, cell("B", 2), "工号")
	for d := 1; d <= grid.Days; d++ {
		col := colName(1 + d)
		f.SetCellValue(sheetName, cell(col, 2), d)
		f.SetCellValue(sheetName, cell(col, 3), weekdayNames[rotation.MondayIndex(month.Day(d))])
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 3), headerStyle)

	// 数据行
	row := 4
	for _, sr := range grid.Rows {
		name := sr.Name
		if name == "" {
			name = sr.StaffID
		}
		f.SetCellValue(sheetName, cell("A", row), name)
		f.SetCellValue(sheetName, cell("B", row), sr.EmployeeNo)
		codes := make(map[int]string, len(sr.Cells))
		for _, ec := range sr.Cells {
			codes[ec.Day] = ec.DutyCode
		}
		for d := 1; d <= grid.Days; d++ {
			code, ok := codes[d]
			if !ok || code == "" {
				code = "-"
			}
			c := cell(colName(1+d), row)
			f.SetCellValue(sheetName, c, code)
			if code == rotation.OffCode {
				f.SetCellStyle(sheetName, c, c, offStyle)
			} else {
				f.SetCellStyle(sheetName, c, c, cellStyle)
			}
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排班表_%s_v%d.xlsx", month.String(), v.VersionNo)
	return buf, filename, nil
}

// ── 辅助函数 ──

func statusLabel(status string) string {
	if status == "published" {
		return "已发布"
	}
	return "草稿"
}

// colName 0 → A
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
