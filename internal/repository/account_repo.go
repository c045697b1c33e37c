package repository

import (
	"context"
	"errors"

	"campuscoin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return translateError(r.db.WithContext(ctx).Create(account).Error)
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*model.Account, error) {
	return r.getWith(ctx, r.db, id)
}

func (r *AccountRepository) getWith(ctx context.Context, tx *gorm.DB, id string) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrAccountNotFound
		}
		return nil, translateError(err)
	}
	return &account, nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Account, error) {
	return r.getWith(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// SetBalance 写入绝对余额并递增版本号
//
// 【关键点】WHERE 带上 version：读取与写入之间若有别的事务改过该行，
// 影响行数为 0，返回并发冲突，由上层整体重试。
func (r *AccountRepository) SetBalance(ctx context.Context, tx *gorm.DB, id string, newBalance int64, version int) (*model.Account, error) {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance": newBalance,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, translateError(err)
		}
		if count == 0 {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.ErrConcurrencyConflict
	}

	return r.getWith(ctx, tx, id)
}

func (r *AccountRepository) ListByKind(ctx context.Context, kind model.AccountKind) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, translateError(err)
}
