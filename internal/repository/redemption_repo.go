package repository

import (
	"context"

	"campuscoin/internal/model"

	"gorm.io/gorm"
)

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) Create(ctx context.Context, tx *gorm.DB, redemption *model.Redemption) error {
	if tx == nil {
		tx = r.db
	}
	return translateError(tx.WithContext(ctx).Create(redemption).Error)
}

func (r *RedemptionRepository) ByStudent(ctx context.Context, studentID string) ([]*model.Redemption, error) {
	return r.list(ctx, r.db.Where("student_id = ?", studentID))
}

func (r *RedemptionRepository) ByAdvantage(ctx context.Context, advantageID string) ([]*model.Redemption, error) {
	return r.list(ctx, r.db.Where("advantage_id = ?", advantageID))
}

func (r *RedemptionRepository) list(ctx context.Context, query *gorm.DB) ([]*model.Redemption, error) {
	redemptions := make([]*model.Redemption, 0)
	err := query.WithContext(ctx).Order("id ASC").Find(&redemptions).Error
	return redemptions, translateError(err)
}
