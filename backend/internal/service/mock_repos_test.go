package service

import (
	"context"
	"sort"
	"sync"

	"campus-erp/backend/internal/model"
	"campus-erp/backend/internal/repository"
)

// ── Mock DistributionRepository ──

type mockDistributionRepo struct {
	rows    []model.DistributionRow
	listErr error
}

func newMockDistributionRepo(rows ...model.DistributionRow) *mockDistributionRepo {
	m := &mockDistributionRepo{}
	_ = m.BatchCreate(context.Background(), rows)
	return m
}

func (m *mockDistributionRepo) ListByScope(_ context.Context, scope model.Scope) ([]model.DistributionRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.DistributionRow
	for _, r := range m.rows {
		if scope.Matches(r.ScopeColumns) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockDistributionRepo) BatchCreate(_ context.Context, rows []model.DistributionRow) error {
	for _, r := range rows {
		if r.ID == 0 {
			r.ID = int64(len(m.rows) + 1)
		}
		m.rows = append(m.rows, r)
	}
	return nil
}

// ── Mock NormalizedRepository ──

type mockNormalizedRepo struct {
	mu           sync.Mutex
	slots        []model.NormalizedSlot
	nextID       int64
	listErr      error
	replaceErr   error
	replaceCalls int
}

func newMockNormalizedRepo() *mockNormalizedRepo {
	return &mockNormalizedRepo{}
}

func (m *mockNormalizedRepo) ListByScope(_ context.Context, scope model.Scope) ([]model.NormalizedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.NormalizedSlot
	for _, s := range m.slots {
		if scope.Matches(s.ScopeColumns) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockNormalizedRepo) CountByScope(ctx context.Context, scope model.Scope) (int64, error) {
	slots, err := m.ListByScope(ctx, scope)
	return int64(len(slots)), err
}

func (m *mockNormalizedRepo) ReplaceByScope(ctx context.Context, scope model.Scope, slots []model.NormalizedSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.replaceErr != nil {
		return m.replaceErr
	}
	kept := m.slots[:0:0]
	for _, s := range m.slots {
		if !scope.Matches(s.ScopeColumns) {
			kept = append(kept, s)
		}
	}
	for _, s := range slots {
		m.nextID++
		s.ID = m.nextID
		kept = append(kept, s)
	}
	m.slots = kept
	return nil
}

// ── Mock ConflictRepository ──

type mockConflictRepo struct {
	mu         sync.Mutex
	records    []model.ConflictRecord
	nextID     int64
	replaceErr error
}

func newMockConflictRepo() *mockConflictRepo {
	return &mockConflictRepo{}
}

func (m *mockConflictRepo) ListByScope(_ context.Context, scope model.Scope, conflictType model.ConflictType) ([]model.ConflictRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ConflictRecord
	for _, r := range m.records {
		if scope.Matches(r.ScopeColumns) && (conflictType == "" || r.ConflictType == conflictType) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockConflictRepo) CountByType(ctx context.Context, scope model.Scope) (map[model.ConflictType]int64, error) {
	records, _ := m.ListByScope(ctx, scope, "")
	counts := make(map[model.ConflictType]int64)
	for _, r := range records {
		counts[r.ConflictType]++
	}
	return counts, nil
}

func (m *mockConflictRepo) ReplaceByScope(_ context.Context, scope model.Scope, records []model.ConflictRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	kept := m.records[:0:0]
	for _, r := range m.records {
		if !scope.Matches(r.ScopeColumns) {
			kept = append(kept, r)
		}
	}
	for _, r := range records {
		m.nextID++
		r.ID = m.nextID
		kept = append(kept, r)
	}
	m.records = kept
	return nil
}

// ── 测试辅助 ──

type testRepos struct {
	distribution *mockDistributionRepo
	normalized   *mockNormalizedRepo
	conflict     *mockConflictRepo
}

func newTestRepos(rows ...model.DistributionRow) (*repository.Repository, *testRepos) {
	m := &testRepos{
		distribution: newMockDistributionRepo(rows...),
		normalized:   newMockNormalizedRepo(),
		conflict:     newMockConflictRepo(),
	}
	return &repository.Repository{
		Distribution: m.distribution,
		Normalized:   m.normalized,
		Conflict:     m.conflict,
	}, m
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func testScopeColumns(division string) model.ScopeColumns {
	return model.ScopeColumns{
		AYLabel:      "2025-26",
		DegreeCode:   "BTECH",
		Year:         2,
		Term:         1,
		DivisionCode: model.StrPtr(division),
	}
}

func testScope() model.Scope {
	return model.Scope{AYLabel: "2025-26", DegreeCode: "BTECH", Year: 2, Term: 1}
}

// distRow 构造一行 quick_counts 分配；faculty 为 JSON 文本
func distRow(id, offering int64, division, subject, faculty string) model.DistributionRow {
	row := model.DistributionRow{
		ID:           id,
		OfferingID:   offering,
		ScopeColumns: testScopeColumns(division),
		SubjectCode:  subject,
		SubjectType:  "theory",
		SlotModel:    string(model.SlotModelQuickCounts),
		WeekStart:    intPtr(1),
		WeekEnd:      intPtr(20),
	}
	if faculty != "" {
		row.FacultyIDs = &faculty
	}
	return row
}
