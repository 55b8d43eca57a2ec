package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/model"
	"github.com/O-B-I-s/TimeTracker/internal/repository"
	"github.com/O-B-I-s/TimeTracker/internal/worktime"
	pkgerrors "github.com/O-B-I-s/TimeTracker/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries     = fmt.Errorf("%w: 该周暂无工时记录", pkgerrors.ErrBadRequest)
	ErrExportMissingParams = fmt.Errorf("%w: 导出参数 name、employeeId、location、department 均为必填", pkgerrors.ErrBadRequest)
	ErrTemplateNotFound    = errors.New("Excel 模板文件不存在")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportOptions 导出配置
type ExportOptions struct {
	// TemplatePath 为空时生成空白表格；非空但文件不存在返回 ErrTemplateNotFound
	TemplatePath string
	WeekStart    time.Weekday
	Location     *time.Location
	// Now 当前时间，测试中注入
	Now func() time.Time
}

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 周内第 i 天固定写入起始行 + i，不按星期几查表
//   - 工时与里程写为公式，合计行对七天求和
type ExportService interface {
	// ExportCurrentWeek 导出当前周（今天所在、以配置的周起始日开头的 7 天）
	ExportCurrentWeek(ctx context.Context, meta *dto.ExportRequest) (*bytes.Buffer, string, error)
	// ExportWeek 导出指定周
	ExportWeek(ctx context.Context, weekStart model.Date, meta *dto.ExportRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	opts   ExportOptions
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, opts ExportOptions, logger *zap.Logger) ExportService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &exportService{repo: repo, opts: opts, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ExportCurrentWeek
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportCurrentWeek(ctx context.Context, meta *dto.ExportRequest) (*bytes.Buffer, string, error) {
	today := s.opts.Now().In(s.opts.Location)
	weekStart := model.NewDate(worktime.WeekStart(today, s.opts.WeekStart))
	return s.ExportWeek(ctx, weekStart, meta)
}

// ════════════════════════════════════════════════════════════
// ExportWeek
// ════════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（TimeEntries_Week_yyyyMMdd.xlsx）, error

func (s *exportService) ExportWeek(ctx context.Context, weekStart model.Date, meta *dto.ExportRequest) (*bytes.Buffer, string, error) {
	if meta == nil || strings.TrimSpace(meta.Name) == "" || strings.TrimSpace(meta.EmployeeID) == "" ||
		strings.TrimSpace(meta.Location) == "" || strings.TrimSpace(meta.Department) == "" {
		return nil, "", ErrExportMissingParams
	}

	// 1. 查询该周记录
	entries, err := s.repo.Entry.ListByRange(ctx, weekStart, weekStart.AddDays(7))
	if err != nil {
		s.logger.Error("查询导出周记录失败", zap.String("week_start", weekStart.String()), zap.Error(err))
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", fmt.Errorf("%w (%s)", ErrExportNoEntries, weekStart.String())
	}

	// 2. 打开模板或新建工作簿
	f, layout, sheet, err := s.openWorkbook()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	// 3. 填充
	if err := fillWorkbook(f, sheet, layout, weekStart, entries, meta); err != nil {
		s.logger.Error("填充 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("TimeEntries_Week_%s.xlsx", weekStart.Format("20060102"))
	return buf, filename, nil
}

// openWorkbook 打开模板；未配置模板时新建带表头的工作簿
func (s *exportService) openWorkbook() (*excelize.File, sheetLayout, string, error) {
	if s.opts.TemplatePath == "" {
		f := excelize.NewFile()
		if err := f.SetSheetName("Sheet1", freshSheetName); err != nil {
			f.Close()
			s.logger.Error("初始化工作表失败", zap.Error(err))
			return nil, sheetLayout{}, "", ErrExportGenerateFail
		}
		if err := writeFreshHeader(f, freshSheetName); err != nil {
			f.Close()
			s.logger.Error("写入表头失败", zap.Error(err))
			return nil, sheetLayout{}, "", ErrExportGenerateFail
		}
		return f, freshLayout, freshSheetName, nil
	}

	if _, err := os.Stat(s.opts.TemplatePath); err != nil {
		s.logger.Error("Excel 模板不存在", zap.String("path", s.opts.TemplatePath), zap.Error(err))
		return nil, sheetLayout{}, "", fmt.Errorf("%w: %s", ErrTemplateNotFound, s.opts.TemplatePath)
	}

	f, err := excelize.OpenFile(s.opts.TemplatePath)
	if err != nil {
		s.logger.Error("打开 Excel 模板失败", zap.String("path", s.opts.TemplatePath), zap.Error(err))
		return nil, sheetLayout{}, "", ErrExportGenerateFail
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, sheetLayout{}, "", ErrExportGenerateFail
	}
	return f, templateLayout, sheets[0], nil
}

func writeFreshHeader(f *excelize.File, sheet string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	for i, h := range freshHeaders {
		if err := f.SetCellValue(sheet, cell(colName(i), 1), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", cell(colName(len(freshHeaders)-1), 1), headerStyle); err != nil {
		return err
	}

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 20)
	f.SetColWidth(sheet, "C", "H", 11)

	for c, label := range freshMetaLabels {
		if err := f.SetCellValue(sheet, c, label); err != nil {
			return err
		}
	}
	return nil
}

// fillWorkbook 写入员工信息、七天明细与合计公式
func fillWorkbook(f *excelize.File, sheet string, layout sheetLayout, weekStart model.Date, entries []model.TimesheetEntry, meta *dto.ExportRequest) error {
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(dateNumFmt)})
	if err != nil {
		return err
	}
	timeStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(timeNumFmt)})
	if err != nil {
		return err
	}

	// 员工信息
	for c, v := range map[string]string{
		layout.NameCell:       meta.Name,
		layout.LocationCell:   meta.Location,
		layout.EmployeeIDCell: meta.EmployeeID,
		layout.DepartmentCell: meta.Department,
	} {
		if err := f.SetCellValue(sheet, c, v); err != nil {
			return err
		}
	}

	// 按日期索引；同日期多条时取第一条（存储层不保证唯一）
	byDate := make(map[string]*model.TimesheetEntry, len(entries))
	for i := range entries {
		key := entries[i].Date.String()
		if _, ok := byDate[key]; !ok {
			byDate[key] = &entries[i]
		}
	}

	for i := 0; i < 7; i++ {
		row := layout.FirstRow + i
		date := weekStart.AddDays(i)

		if layout.DayCol != "" {
			if err := f.SetCellValue(sheet, cell(layout.DayCol, row), strings.ToUpper(date.Weekday().String())); err != nil {
				return err
			}
		}

		dateCell := cell(layout.DateCol, row)
		if err := f.SetCellValue(sheet, dateCell, date.Time); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, dateCell, dateCell, dateStyle); err != nil {
			return err
		}

		startCell, endCell := cell(layout.StartCol, row), cell(layout.EndCol, row)
		odoStartCell, odoEndCell := cell(layout.OdoStartCol, row), cell(layout.OdoEndCol, row)

		if entry, ok := byDate[date.String()]; ok {
			if err := f.SetCellValue(sheet, startCell, entry.StartTime.DayFraction()); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, endCell, entry.EndTime.DayFraction()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, startCell, endCell, timeStyle); err != nil {
				return err
			}
			if entry.OdometerStart != nil {
				if err := f.SetCellValue(sheet, odoStartCell, *entry.OdometerStart); err != nil {
					return err
				}
			}
			if entry.OdometerEnd != nil {
				if err := f.SetCellValue(sheet, odoEndCell, *entry.OdometerEnd); err != nil {
					return err
				}
			}
		}

		hoursFormula := fmt.Sprintf(`IF(AND(%s<>"",%s<>""),MAX(0,(%s-%s)*24),"")`, startCell, endCell, endCell, startCell)
		if err := f.SetCellFormula(sheet, cell(layout.HoursCol, row), hoursFormula); err != nil {
			return err
		}
		kmFormula := fmt.Sprintf(`IF(AND(%s<>"",%s<>""),%s-%s,"")`, odoStartCell, odoEndCell, odoEndCell, odoStartCell)
		if err := f.SetCellFormula(sheet, cell(layout.KmCol, row), kmFormula); err != nil {
			return err
		}
	}

	// 合计行
	lastRow := layout.FirstRow + 6
	if layout.DayCol != "" {
		if err := f.SetCellValue(sheet, cell(layout.DayCol, layout.TotalsRow), "TOTAL"); err != nil {
			return err
		}
	}
	for _, col := range []string{layout.HoursCol, layout.KmCol} {
		formula := fmt.Sprintf("SUM(%s:%s)", cell(col, layout.FirstRow), cell(col, lastRow))
		if err := f.SetCellFormula(sheet, cell(col, layout.TotalsRow), formula); err != nil {
			return err
		}
	}

	return nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func strPtr(s string) *string { return &s }
