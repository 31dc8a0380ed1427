package model

import "time"

// AtomicSlotKey 冲突检测的原子时间单元 (星期, 节次)；整天块节次为 0
type AtomicSlotKey struct {
	Day    int `json:"day_of_week"`
	Period int `json:"period_index"`
}

// NormalizedSlot 规范化后的单节（或整天块）排课 — 对应 normalized_weekly_assignment
type NormalizedSlot struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"        json:"id"`
	DistributionID int64 `gorm:"column:distribution_id;not null" json:"distribution_id"`
	ScopeColumns
	OfferingID  int64   `gorm:"column:offering_id;not null"                   json:"offering_id"`
	SubjectCode string  `gorm:"column:subject_code;type:varchar(32);not null" json:"subject_code"`
	SubjectType string  `gorm:"column:subject_type;type:varchar(32);not null" json:"subject_type"`
	FacultyID   *string `gorm:"column:faculty_id;type:varchar(128)"            json:"faculty_id"` // NULL = 未分配教师的占位行

	DayOfWeek     int  `gorm:"column:day_of_week;type:smallint;not null"  json:"day_of_week"`
	PeriodIndex   int  `gorm:"column:period_index;type:smallint;not null" json:"period_index"`
	SpanLength    int  `gorm:"column:span_length;not null"                json:"span_length"`
	IsAllDayBlock bool `gorm:"column:is_all_day_block;not null;default:false" json:"is_all_day_block"`

	ModuleStartDate *time.Time `gorm:"column:module_start_date;type:date" json:"module_start_date,omitempty"`
	ModuleEndDate   *time.Time `gorm:"column:module_end_date;type:date"   json:"module_end_date,omitempty"`
	WeekStart       *int       `gorm:"column:week_start"                  json:"week_start,omitempty"`
	WeekEnd         *int       `gorm:"column:week_end"                    json:"week_end,omitempty"`

	RoomCode *string `gorm:"column:room_code;type:varchar(32)" json:"room_code,omitempty"`
	LabCode  *string `gorm:"column:lab_code;type:varchar(32)"  json:"lab_code,omitempty"`
	CreatedModel
}

// TableName 指定表名
func (NormalizedSlot) TableName() string { return "normalized_weekly_assignment" }

// AtomicKeys 该行占用的全部原子时间单元
// 整天块只占 (day, 0)；跨多节的行占 period_index … period_index+span-1
func (n *NormalizedSlot) AtomicKeys() []AtomicSlotKey {
	if n.IsAllDayBlock {
		return []AtomicSlotKey{{Day: n.DayOfWeek, Period: 0}}
	}
	span := n.SpanLength
	if span < 1 {
		span = 1
	}
	keys := make([]AtomicSlotKey, 0, span)
	for p := n.PeriodIndex; p < n.PeriodIndex+span; p++ {
		keys = append(keys, AtomicSlotKey{Day: n.DayOfWeek, Period: p})
	}
	return keys
}

// [自证通过] internal/model/normalized.go
