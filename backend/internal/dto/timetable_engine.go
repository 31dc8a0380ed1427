package dto

import (
	"campus-erp/backend/internal/model"
)

// ── 作用域 ──

// ScopeRequest 作用域参数（POST 为 JSON 请求体，GET 为查询参数）
// 可选维度留空表示不限定
type ScopeRequest struct {
	AYLabel             string `json:"ay"       form:"ay"       binding:"required,max=32"`
	DegreeCode          string `json:"degree"   form:"degree"   binding:"required,max=32"`
	Year                int    `json:"year"     form:"year"     binding:"required,min=1"`
	Term                int    `json:"term"     form:"term"     binding:"required,min=1"`
	ProgramCode         string `json:"program"  form:"program"  binding:"omitempty,max=32"`
	BranchCode          string `json:"branch"   form:"branch"   binding:"omitempty,max=32"`
	CurriculumGroupCode string `json:"cg"       form:"cg"       binding:"omitempty,max=32"`
	DivisionCode        string `json:"division" form:"division" binding:"omitempty,max=16"`
}

// ToScope 转换为领域作用域；空白可选维度归一为 nil
func (r *ScopeRequest) ToScope() model.Scope {
	return model.Scope{
		AYLabel:             r.AYLabel,
		DegreeCode:          r.DegreeCode,
		Year:                r.Year,
		Term:                r.Term,
		ProgramCode:         model.StrPtr(r.ProgramCode),
		BranchCode:          model.StrPtr(r.BranchCode),
		CurriculumGroupCode: model.StrPtr(r.CurriculumGroupCode),
		DivisionCode:        model.StrPtr(r.DivisionCode),
	}
}

// ConflictListQuery 冲突列表查询参数
type ConflictListQuery struct {
	ScopeRequest
	Type string `form:"type" binding:"omitempty,oneof=faculty_double_booking room_double_booking"`
}

// ── 重建 / 检测结果 ──

// RowIssue 单行数据问题
// 告警：该字段按空处理，行仍被展开；跳过：该行未被展开
type RowIssue struct {
	DistributionID int64  `json:"distribution_id"`
	Field          string `json:"field"`
	Reason         string `json:"reason"`
}

// RebuildResult 规范化重建结果
type RebuildResult struct {
	RowsRead      int        `json:"rows_read"`
	RowsExcluded  int        `json:"rows_excluded"` // 由选修课表子系统管理的行
	SlotsInserted int        `json:"slots_inserted"`
	Skipped       []RowIssue `json:"skipped"`
	Warnings      []RowIssue `json:"warnings"`
}

// DetectResult 冲突检测结果
type DetectResult struct {
	SlotsScanned    int                        `json:"slots_scanned"`
	ConflictsLogged int                        `json:"conflicts_logged"`
	ByType          map[model.ConflictType]int `json:"by_type"`
}

// RebuildAndCheckResult 重建 + 检测结果
type RebuildAndCheckResult struct {
	Rebuild *RebuildResult `json:"rebuild"`
	Detect  *DetectResult  `json:"detect"`
}

// ScopeRunResult 批量重建中单个作用域的结果
type ScopeRunResult struct {
	Scope  string                 `json:"scope"`
	Result *RebuildAndCheckResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ── 查询响应 ──

// SlotListResponse 规范化课时列表
type SlotListResponse struct {
	Total int                    `json:"total"`
	Items []model.NormalizedSlot `json:"items"`
}

// ConflictListResponse 冲突列表
type ConflictListResponse struct {
	Total int                    `json:"total"`
	Items []model.ConflictRecord `json:"items"`
}

// ConflictSummaryResponse 冲突汇总（按类型计数）
type ConflictSummaryResponse struct {
	Total                int64 `json:"total"`
	FacultyDoubleBooking int64 `json:"faculty_double_booking"`
	RoomDoubleBooking    int64 `json:"room_double_booking"`
}

// FacultyRoleResponse 科目教师角色：第一位为负责教师，其余为协同教师
type FacultyRoleResponse struct {
	DistributionID   int64    `json:"distribution_id"`
	OfferingID       int64    `json:"offering_id"`
	SubjectCode      string   `json:"subject_code"`
	SubjectType      string   `json:"subject_type"`
	DivisionCode     *string  `json:"division_code"`
	ManagedElsewhere bool     `json:"managed_elsewhere"`
	InCharge         *string  `json:"in_charge"`
	CoFaculty        []string `json:"co_faculty"`
}

// [自证通过] internal/dto/timetable_engine.go
