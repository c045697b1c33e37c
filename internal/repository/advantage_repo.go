package repository

import (
	"context"
	"errors"

	"campuscoin/internal/model"

	"gorm.io/gorm"
)

// AdvantageRepository 优惠目录
// Delete 走 gorm 软删除（deleted_at），普通查询自动过滤掉已删除记录
type AdvantageRepository struct {
	db *gorm.DB
}

func NewAdvantageRepository(db *gorm.DB) *AdvantageRepository {
	return &AdvantageRepository{db: db}
}

func (r *AdvantageRepository) Create(ctx context.Context, advantage *model.Advantage) error {
	return translateError(r.db.WithContext(ctx).Create(advantage).Error)
}

func (r *AdvantageRepository) Get(ctx context.Context, id string) (*model.Advantage, error) {
	return r.getWith(ctx, r.db, id)
}

func (r *AdvantageRepository) getWith(ctx context.Context, tx *gorm.DB, id string) (*model.Advantage, error) {
	var advantage model.Advantage
	err := tx.WithContext(ctx).Where("id = ?", id).First(&advantage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrAdvantageNotFound
		}
		return nil, translateError(err)
	}
	return &advantage, nil
}

func (r *AdvantageRepository) ListByCompany(ctx context.Context, companyID string) ([]*model.Advantage, error) {
	advantages := make([]*model.Advantage, 0)
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&advantages).Error
	return advantages, translateError(err)
}

// Update 只允许修改名称和价格，company_id 创建后不可变
func (r *AdvantageRepository) Update(ctx context.Context, id, name string, price int64) (*model.Advantage, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Advantage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":  name,
			"price": price,
		})
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	// MySQL 对未变化的行返回 0，不能据此判断不存在，统一回查
	return r.Get(ctx, id)
}

func (r *AdvantageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Advantage{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrAdvantageNotFound
	}
	return nil
}
