package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"campus-erp/backend/internal/dto"
	"campus-erp/backend/internal/model"
	pkgerrors "campus-erp/backend/pkg/errors"
)

// ── ScopeGuard ──

func TestScopeGuard_BusyOnSameLockKey(t *testing.T) {
	guard := NewScopeGuard(nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	scopeA := testScope()
	scopeA.DivisionCode = strPtr("A")
	scopeB := testScope() // 不限班级：与 A 相交

	err := guard.Run(ctx, scopeA, func(ctx context.Context) error {
		inner := guard.Run(ctx, scopeB, func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrScopeBusy)

		other := testScope()
		other.Term = 2
		return guard.Run(ctx, other, func(context.Context) error { return nil })
	})
	require.NoError(t, err)

	// 释放后可再次获取
	require.NoError(t, guard.Run(ctx, scopeB, func(context.Context) error { return nil }))
}

func TestScopeGuard_PropagatesErrors(t *testing.T) {
	guard := NewScopeGuard(nil, time.Minute, zap.NewNop())
	boom := errors.New("boom")

	err := guard.Run(context.Background(), testScope(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = guard.Run(context.Background(), model.Scope{}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrScopeInvalid)
}

type failingLocker struct{ err error }

func (f failingLocker) AcquireLock(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return nil, f.err
}

func TestScopeGuard_RemoteLockHeld(t *testing.T) {
	guard := NewScopeGuard(failingLocker{err: pkgerrors.ErrLockHeld}, time.Minute, zap.NewNop())
	err := guard.Run(context.Background(), testScope(), func(context.Context) error {
		t.Fatal("锁被占用时不应执行")
		return nil
	})
	assert.ErrorIs(t, err, ErrScopeBusy)

	unreachable := errors.New("dial tcp: connection refused")
	guard = NewScopeGuard(failingLocker{err: unreachable}, time.Minute, zap.NewNop())
	err = guard.Run(context.Background(), testScope(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, unreachable)
}

// ── BatchRunner ──

// recordingNormalizer 记录同一 LockKey 下的并发度
type recordingNormalizer struct {
	NormalizerService
	mu        sync.Mutex
	active    map[string]int
	maxActive map[string]int
	calls     atomic.Int32
	failOn    string
}

func newRecordingNormalizer() *recordingNormalizer {
	return &recordingNormalizer{active: map[string]int{}, maxActive: map[string]int{}}
}

func (r *recordingNormalizer) RebuildAndCheck(ctx context.Context, scope model.Scope) (*dto.RebuildAndCheckResult, error) {
	r.calls.Add(1)
	key := scope.LockKey()
	r.mu.Lock()
	r.active[key]++
	if r.active[key] > r.maxActive[key] {
		r.maxActive[key] = r.active[key]
	}
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active[key]--
	r.mu.Unlock()

	if model.StrVal(scope.DivisionCode) == r.failOn {
		return nil, errors.New("storage unavailable")
	}
	return &dto.RebuildAndCheckResult{
		Rebuild: &dto.RebuildResult{SlotsInserted: 1},
		Detect:  &dto.DetectResult{},
	}, nil
}

func scopesForBatch() []model.Scope {
	var scopes []model.Scope
	for _, term := range []int{1, 2} {
		for _, div := range []string{"A", "B", "C"} {
			sc := testScope()
			sc.Term = term
			sc.DivisionCode = strPtr(div)
			scopes = append(scopes, sc)
		}
	}
	return scopes
}

func TestBatchRunner_RebuildAll_SerializesOverlappingScopes(t *testing.T) {
	defer goleak.VerifyNone(t)

	normalizer := newRecordingNormalizer()
	guard := NewScopeGuard(nil, time.Minute, zap.NewNop())
	runner := NewBatchRunner(normalizer, guard, 4, zap.NewNop())

	scopes := scopesForBatch()
	results, err := runner.RebuildAll(context.Background(), scopes)
	require.NoError(t, err)
	require.Len(t, results, len(scopes))

	for i, r := range results {
		assert.Equal(t, scopes[i].String(), r.Scope)
		assert.Empty(t, r.Error)
		require.NotNil(t, r.Result)
	}
	for key, n := range normalizer.maxActive {
		assert.Equal(t, 1, n, "同一 LockKey %s 不应并发", key)
	}
	assert.EqualValues(t, len(scopes), normalizer.calls.Load())
}

func TestBatchRunner_RebuildAll_IsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	normalizer := newRecordingNormalizer()
	normalizer.failOn = "B"
	runner := NewBatchRunner(normalizer, NewScopeGuard(nil, time.Minute, zap.NewNop()), 2, zap.NewNop())

	results, err := runner.RebuildAll(context.Background(), scopesForBatch())
	require.NoError(t, err)

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			assert.Nil(t, r.Result)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestBatchRunner_RebuildAll_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	normalizer := newRecordingNormalizer()
	runner := NewBatchRunner(normalizer, NewScopeGuard(nil, time.Minute, zap.NewNop()), 2, zap.NewNop())

	_, err := runner.RebuildAll(ctx, scopesForBatch())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, normalizer.calls.Load())
}

func TestBatchRunner_RebuildAll_WithRealService(t *testing.T) {
	defer goleak.VerifyNone(t)

	row1 := distRow(1, 10, "A", "CS101", `["E1"]`)
	row1.MonPeriods = 2
	row2 := distRow(2, 11, "B", "CS102", `["E1"]`)
	row2.MonPeriods = 2
	repo, _ := newTestRepos(row1, row2)
	normalizer := NewNormalizerService(repo, time.Second, zap.NewNop())
	runner := NewBatchRunner(normalizer, NewScopeGuard(nil, time.Minute, zap.NewNop()), 4, zap.NewNop())

	results, err := runner.RebuildAll(context.Background(), []model.Scope{testScope()})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)
	assert.Equal(t, 4, results[0].Result.Rebuild.SlotsInserted)
	assert.Equal(t, 2, results[0].Result.Detect.ConflictsLogged)
}
