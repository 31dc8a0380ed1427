package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"campus-erp/backend/internal/model"
)

func setupTestNormalizerService(rows ...model.DistributionRow) (NormalizerService, *testRepos) {
	repo, mocks := newTestRepos(rows...)
	return NewNormalizerService(repo, 0, zap.NewNop()), mocks
}

// ── RebuildAndCheck 端到端 ──

func TestNormalizerService_RebuildAndCheck_EndToEnd(t *testing.T) {
	row1 := distRow(1, 10, "A", "CS101", `["E1"]`)
	row1.MonPeriods = 2
	row2 := distRow(2, 11, "B", "CS102", `["E1"]`)
	row2.MonPeriods = 2
	svc, mocks := setupTestNormalizerService(row1, row2)

	result, err := svc.RebuildAndCheck(context.Background(), testScope())
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if result.Rebuild.SlotsInserted != 4 {
		t.Errorf("期望插入 4 条课时，实际 %d", result.Rebuild.SlotsInserted)
	}
	if result.Detect.ConflictsLogged != 2 {
		t.Errorf("期望 2 条冲突，实际 %d", result.Detect.ConflictsLogged)
	}
	if result.Detect.ByType[model.ConflictFacultyDoubleBooking] != 2 {
		t.Errorf("期望 2 条教师冲突，实际 %v", result.Detect.ByType)
	}

	for i, c := range mocks.conflict.records {
		if c.ConflictType != model.ConflictFacultyDoubleBooking || model.StrVal(c.FacultyID) != "E1" {
			t.Errorf("冲突 %d: 期望 E1 的教师冲突，实际 %+v", i, c)
		}
		if c.DayOfWeek != model.Monday || c.PeriodIndex != i+1 {
			t.Errorf("冲突 %d: 期望周一第 %d 节，实际 %d/%d", i, i+1, c.DayOfWeek, c.PeriodIndex)
		}
		if len(c.Details.NormalizedIDs) != 2 {
			t.Errorf("冲突 %d: 期望明细包含 2 条课时，实际 %v", i, c.Details.NormalizedIDs)
		}
	}
}

// ── RebuildNormalized ──

func TestNormalizerService_RebuildNormalized_Idempotent(t *testing.T) {
	row := distRow(1, 10, "A", "CS101", `["f1","f2"]`)
	row.MonPeriods = 3
	svc, mocks := setupTestNormalizerService(row)
	ctx := context.Background()

	if _, err := svc.RebuildNormalized(ctx, testScope()); err != nil {
		t.Fatalf("首次重建失败: %v", err)
	}
	first := append([]model.NormalizedSlot(nil), mocks.normalized.slots...)

	if _, err := svc.RebuildNormalized(ctx, testScope()); err != nil {
		t.Fatalf("再次重建失败: %v", err)
	}
	second := mocks.normalized.slots

	if len(first) != 6 || len(second) != 6 {
		t.Fatalf("期望两次均为 6 条，实际 %d / %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		a.ID, b.ID = 0, 0
		if model.StrVal(a.FacultyID) != model.StrVal(b.FacultyID) || a.DayOfWeek != b.DayOfWeek || a.PeriodIndex != b.PeriodIndex {
			t.Errorf("第 %d 条不一致: %+v vs %+v", i, a, b)
		}
	}
}

func TestNormalizerService_RebuildNormalized_SkipsInvalidRows(t *testing.T) {
	good := distRow(1, 10, "A", "CS101", `["f1"]`)
	good.MonPeriods = 1
	bad := distRow(2, 0, "A", "", `["f2"]`)
	bad.MonPeriods = 1
	malformed := distRow(3, 12, "A", "CS103", `not-json`)
	malformed.TuePeriods = 1
	elective := distRow(4, 13, "A", "EL201", `["f3"]`)
	elective.ManagedInElectiveTT = true
	elective.WedPeriods = 2
	svc, _ := setupTestNormalizerService(good, bad, malformed, elective)

	result, err := svc.RebuildNormalized(context.Background(), testScope())
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if result.RowsRead != 4 {
		t.Errorf("期望读取 4 行，实际 %d", result.RowsRead)
	}
	if result.SlotsInserted != 2 {
		t.Errorf("期望插入 2 条（正常行 + 占位行），实际 %d", result.SlotsInserted)
	}
	if result.RowsExcluded != 1 {
		t.Errorf("期望排除 1 行，实际 %d", result.RowsExcluded)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("期望 offering_id 与 subject_code 两条跳过原因，实际 %+v", result.Skipped)
	}
	for _, s := range result.Skipped {
		if s.DistributionID != 2 {
			t.Errorf("期望只跳过第 2 行，实际 %+v", s)
		}
	}
	if !hasIssue(result.Warnings, "faculty_ids") {
		t.Errorf("期望 faculty_ids 告警，实际 %+v", result.Warnings)
	}
}

func TestNormalizerService_RebuildNormalized_ScopeIsolation(t *testing.T) {
	rowX := distRow(1, 10, "X", "CS101", `["f1"]`)
	rowX.MonPeriods = 1
	rowY := distRow(2, 11, "Y", "CS102", `["f2"]`)
	rowY.TuePeriods = 2
	svc, mocks := setupTestNormalizerService(rowX, rowY)
	ctx := context.Background()

	scopeY := testScope()
	scopeY.DivisionCode = strPtr("Y")
	if _, err := svc.RebuildNormalized(ctx, scopeY); err != nil {
		t.Fatalf("重建 Y 失败: %v", err)
	}
	before := append([]model.NormalizedSlot(nil), mocks.normalized.slots...)

	scopeX := testScope()
	scopeX.DivisionCode = strPtr("X")
	if _, err := svc.RebuildNormalized(ctx, scopeX); err != nil {
		t.Fatalf("重建 X 失败: %v", err)
	}

	var afterY []model.NormalizedSlot
	for _, s := range mocks.normalized.slots {
		if model.StrVal(s.DivisionCode) == "Y" {
			afterY = append(afterY, s)
		}
	}
	if len(afterY) != len(before) {
		t.Fatalf("期望 Y 保持 %d 条，实际 %d", len(before), len(afterY))
	}
	for i := range before {
		if before[i].ID != afterY[i].ID {
			t.Errorf("Y 的课时被改动: %+v → %+v", before[i], afterY[i])
		}
	}
}

func TestNormalizerService_RebuildNormalized_UnconstrainedProgram(t *testing.T) {
	cse := distRow(1, 10, "A", "CS101", `["f1"]`)
	cse.ProgramCode = strPtr("CSE")
	cse.MonPeriods = 1
	ece := distRow(2, 11, "A", "EC101", `["f2"]`)
	ece.ProgramCode = strPtr("ECE")
	ece.MonPeriods = 1
	none := distRow(3, 12, "A", "MA101", `["f3"]`)
	none.MonPeriods = 1
	svc, _ := setupTestNormalizerService(cse, ece, none)

	result, err := svc.RebuildNormalized(context.Background(), testScope())
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if result.RowsRead != 3 || result.SlotsInserted != 3 {
		t.Errorf("期望读取 3 行并插入 3 条，实际 %d / %d", result.RowsRead, result.SlotsInserted)
	}
}

func TestNormalizerService_InvalidScope(t *testing.T) {
	svc, _ := setupTestNormalizerService()
	ctx := context.Background()

	scope := testScope()
	scope.Term = 0
	if _, err := svc.RebuildNormalized(ctx, scope); !errors.Is(err, ErrScopeInvalid) {
		t.Errorf("期望 ErrScopeInvalid，实际: %v", err)
	}
	if _, err := svc.DetectConflicts(ctx, model.Scope{}); !errors.Is(err, ErrScopeInvalid) {
		t.Errorf("期望 ErrScopeInvalid，实际: %v", err)
	}
}

func TestNormalizerService_RebuildNormalized_StorageError(t *testing.T) {
	row := distRow(1, 10, "A", "CS101", `["f1"]`)
	row.MonPeriods = 1
	svc, mocks := setupTestNormalizerService(row)
	storageErr := errors.New("connection reset")
	mocks.normalized.replaceErr = storageErr

	_, err := svc.RebuildNormalized(context.Background(), testScope())
	if !errors.Is(err, storageErr) {
		t.Errorf("期望透传存储错误，实际: %v", err)
	}
	if mocks.normalized.replaceCalls != 1 {
		t.Errorf("期望不重试（调用 1 次），实际 %d 次", mocks.normalized.replaceCalls)
	}
}

func TestNormalizerService_RebuildNormalized_LoadError(t *testing.T) {
	svc, mocks := setupTestNormalizerService()
	mocks.distribution.listErr = errors.New("timeout")

	if _, err := svc.RebuildNormalized(context.Background(), testScope()); err == nil {
		t.Error("期望返回错误")
	}
	if mocks.normalized.replaceCalls != 0 {
		t.Errorf("读取失败时不应写入，实际调用 %d 次", mocks.normalized.replaceCalls)
	}
}

// 检测失败：规范化结果保留，单独重跑检测即可恢复
func TestNormalizerService_RebuildAndCheck_DetectFailureThenRetry(t *testing.T) {
	row1 := distRow(1, 10, "A", "CS101", `["E1"]`)
	row1.MonPeriods = 1
	row2 := distRow(2, 11, "B", "CS102", `["E1"]`)
	row2.MonPeriods = 1
	svc, mocks := setupTestNormalizerService(row1, row2)
	ctx := context.Background()

	mocks.conflict.replaceErr = errors.New("deadlock detected")
	if _, err := svc.RebuildAndCheck(ctx, testScope()); err == nil {
		t.Fatal("期望返回错误")
	}
	if len(mocks.normalized.slots) != 2 {
		t.Errorf("期望规范化结果已提交 2 条，实际 %d", len(mocks.normalized.slots))
	}

	mocks.conflict.replaceErr = nil
	result, err := svc.DetectConflicts(ctx, testScope())
	if err != nil {
		t.Fatalf("重跑检测失败: %v", err)
	}
	if result.ConflictsLogged != 1 || result.SlotsScanned != 2 {
		t.Errorf("期望扫描 2 条、冲突 1 条，实际 %d / %d", result.SlotsScanned, result.ConflictsLogged)
	}
}

func TestNormalizerService_DetectConflicts_ReplacesStale(t *testing.T) {
	row1 := distRow(1, 10, "A", "CS101", `["E1"]`)
	row1.MonPeriods = 1
	row2 := distRow(2, 11, "B", "CS102", `["E1"]`)
	row2.MonPeriods = 1
	svc, mocks := setupTestNormalizerService(row1, row2)
	ctx := context.Background()

	if _, err := svc.RebuildAndCheck(ctx, testScope()); err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}

	// 编辑分配后重跑：冲突消失
	mocks.distribution.rows[1].FacultyIDs = strPtr(`["E2"]`)
	result, err := svc.RebuildAndCheck(ctx, testScope())
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if result.Detect.ConflictsLogged != 0 || len(mocks.conflict.records) != 0 {
		t.Errorf("期望冲突被清空，实际 %d / %d", result.Detect.ConflictsLogged, len(mocks.conflict.records))
	}
}

// ── 查询 ──

func TestNormalizerService_ConflictSummaryAndList(t *testing.T) {
	row1 := distRow(1, 10, "A", "CS101", `["E1"]`)
	row1.MonPeriods = 1
	row1.RoomCode = strPtr("R1")
	row2 := distRow(2, 11, "B", "CS102", `["E1"]`)
	row2.MonPeriods = 1
	row2.RoomCode = strPtr("R1")
	svc, _ := setupTestNormalizerService(row1, row2)
	ctx := context.Background()

	if _, err := svc.RebuildAndCheck(ctx, testScope()); err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}

	summary, err := svc.ConflictSummary(ctx, testScope())
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}
	if summary.Total != 2 || summary.FacultyDoubleBooking != 1 || summary.RoomDoubleBooking != 1 {
		t.Errorf("期望 1 教师 + 1 教室冲突，实际 %+v", summary)
	}

	rooms, err := svc.ListConflicts(ctx, testScope(), model.ConflictRoomDoubleBooking)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(rooms) != 1 || len(rooms[0].Details.FacultyIDs) != 2 {
		t.Errorf("期望 1 条教室冲突且列出 2 位教师，实际 %+v", rooms)
	}

	if _, err := svc.ListConflicts(ctx, testScope(), "time_travel"); !errors.Is(err, ErrConflictTypeInvalid) {
		t.Errorf("期望 ErrConflictTypeInvalid，实际: %v", err)
	}

	slots, err := svc.ListSlots(ctx, testScope())
	if err != nil || len(slots) != 2 {
		t.Errorf("期望 2 条课时，实际 %d (%v)", len(slots), err)
	}
}

func TestNormalizerService_FacultyRoles(t *testing.T) {
	row1 := distRow(1, 10, "A", "CS101", `["E1","E2","E3"]`)
	row2 := distRow(2, 11, "A", "CS102", "")
	row3 := distRow(3, 12, "A", "CS103", `broken`)
	svc, _ := setupTestNormalizerService(row1, row2, row3)

	roles, err := svc.FacultyRoles(context.Background(), testScope())
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("期望 3 条，实际 %d", len(roles))
	}
	if model.StrVal(roles[0].InCharge) != "E1" || len(roles[0].CoFaculty) != 2 || roles[0].CoFaculty[1] != "E3" {
		t.Errorf("期望 E1 负责、E2/E3 协同，实际 %+v", roles[0])
	}
	for _, r := range roles[1:] {
		if r.InCharge != nil || len(r.CoFaculty) != 0 {
			t.Errorf("期望无教师，实际 %+v", r)
		}
	}
}
