package model

import (
	"fmt"
	"strings"
	"time"
)

// SlotModel 周分布的排课模型
type SlotModel string

const (
	// SlotModelQuickCounts 按天给出节次数，顺序占用第 1..N 节
	SlotModelQuickCounts SlotModel = "quick_counts"
	// SlotModelExplicitSlots 按天给出具体节次列表（mon_slots … sat_slots）
	SlotModelExplicitSlots SlotModel = "explicit_slots"
)

// ParseSlotModel 解析排课模型；空串按 quick_counts 处理，未知取值返回错误
func ParseSlotModel(s string) (SlotModel, error) {
	switch SlotModel(strings.TrimSpace(s)) {
	case "", SlotModelQuickCounts:
		return SlotModelQuickCounts, nil
	case SlotModelExplicitSlots:
		return SlotModelExplicitSlots, nil
	default:
		return "", fmt.Errorf("未知的排课模型 %q", s)
	}
}

// 星期编号 1=周一 … 6=周六
const (
	Monday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DayNames 星期编号 → 英文缩写
var DayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayIndex 英文星期缩写/全称 → 编号，不识别返回 0
func DayIndex(name string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) >= 3 {
		n = n[:3]
	}
	for i := Monday; i <= Saturday; i++ {
		if strings.ToLower(DayNames[i]) == n {
			return i
		}
	}
	return 0
}

// DistributionRow 每周科目分布 — 对应 weekly_subject_distribution（上游编辑器维护，引擎只读）
type DistributionRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"                json:"id"`
	OfferingID int64  `gorm:"column:offering_id;not null"            json:"offering_id"  validate:"gt=0"`
	ScopeColumns
	SubjectCode string `gorm:"column:subject_code;type:varchar(32);not null" json:"subject_code" validate:"nonblank"`
	SubjectType string `gorm:"column:subject_type;type:varchar(32);not null" json:"subject_type" validate:"nonblank"`

	ManagedInElectiveTT bool   `gorm:"column:managed_in_elective_tt;not null;default:false" json:"managed_in_elective_tt"`
	SlotModel           string `gorm:"column:slot_model;type:varchar(32)"                  json:"slot_model" validate:"slot_model"`

	MonPeriods int `gorm:"column:mon_periods;not null;default:0" json:"mon_periods" validate:"gte=0"`
	TuePeriods int `gorm:"column:tue_periods;not null;default:0" json:"tue_periods" validate:"gte=0"`
	WedPeriods int `gorm:"column:wed_periods;not null;default:0" json:"wed_periods" validate:"gte=0"`
	ThuPeriods int `gorm:"column:thu_periods;not null;default:0" json:"thu_periods" validate:"gte=0"`
	FriPeriods int `gorm:"column:fri_periods;not null;default:0" json:"fri_periods" validate:"gte=0"`
	SatPeriods int `gorm:"column:sat_periods;not null;default:0" json:"sat_periods" validate:"gte=0"`

	// explicit_slots 模型下的节次 JSON 数组，如 "[1,3]"
	MonSlots *string `gorm:"column:mon_slots;type:text" json:"mon_slots,omitempty"`
	TueSlots *string `gorm:"column:tue_slots;type:text" json:"tue_slots,omitempty"`
	WedSlots *string `gorm:"column:wed_slots;type:text" json:"wed_slots,omitempty"`
	ThuSlots *string `gorm:"column:thu_slots;type:text" json:"thu_slots,omitempty"`
	FriSlots *string `gorm:"column:fri_slots;type:text" json:"fri_slots,omitempty"`
	SatSlots *string `gorm:"column:sat_slots;type:text" json:"sat_slots,omitempty"`

	IsAllDayElectiveBlock bool    `gorm:"column:is_all_day_elective_block;not null;default:false" json:"is_all_day_elective_block"`
	ExtendedAfternoonDays *string `gorm:"column:extended_afternoon_days;type:text"                json:"extended_afternoon_days,omitempty"`

	ModuleStartDate *time.Time `gorm:"column:module_start_date;type:date" json:"module_start_date,omitempty"`
	ModuleEndDate   *time.Time `gorm:"column:module_end_date;type:date"   json:"module_end_date,omitempty"`
	WeekStart       *int       `gorm:"column:week_start;default:1"        json:"week_start,omitempty" validate:"omitempty,gte=1"`
	WeekEnd         *int       `gorm:"column:week_end;default:20"         json:"week_end,omitempty"   validate:"omitempty,gte=1"`

	FacultyIDs *string `gorm:"column:faculty_ids;type:text"           json:"faculty_ids,omitempty"`
	RoomCode   *string `gorm:"column:room_code;type:varchar(32)"      json:"room_code,omitempty"`
	LabCode    *string `gorm:"column:lab_code;type:varchar(32)"       json:"lab_code,omitempty"`
	Notes      *string `gorm:"column:notes;type:text"                 json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (DistributionRow) TableName() string { return "weekly_subject_distribution" }

// PeriodCount 指定星期的节次数（quick_counts），越界返回 0
func (d *DistributionRow) PeriodCount(day int) int {
	switch day {
	case Monday:
		return d.MonPeriods
	case Tuesday:
		return d.TuePeriods
	case Wednesday:
		return d.WedPeriods
	case Thursday:
		return d.ThuPeriods
	case Friday:
		return d.FriPeriods
	case Saturday:
		return d.SatPeriods
	}
	return 0
}

// SetPeriodCount 设置指定星期的节次数
func (d *DistributionRow) SetPeriodCount(day, n int) {
	switch day {
	case Monday:
		d.MonPeriods = n
	case Tuesday:
		d.TuePeriods = n
	case Wednesday:
		d.WedPeriods = n
	case Thursday:
		d.ThuPeriods = n
	case Friday:
		d.FriPeriods = n
	case Saturday:
		d.SatPeriods = n
	}
}

// ExplicitSlots 指定星期的显式节次原始 JSON
func (d *DistributionRow) ExplicitSlots(day int) *string {
	switch day {
	case Monday:
		return d.MonSlots
	case Tuesday:
		return d.TueSlots
	case Wednesday:
		return d.WedSlots
	case Thursday:
		return d.ThuSlots
	case Friday:
		return d.FriSlots
	case Saturday:
		return d.SatSlots
	}
	return nil
}

// [自证通过] internal/model/distribution.go
