package repository

import (
	"context"
	"errors"

	"campuscoin/internal/model"

	"gorm.io/gorm"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *model.Company) error {
	return translateError(r.db.WithContext(ctx).Create(company).Error)
}

func (r *CompanyRepository) Get(ctx context.Context, id string) (*model.Company, error) {
	return r.getWith(ctx, r.db, id)
}

func (r *CompanyRepository) getWith(ctx context.Context, tx *gorm.DB, id string) (*model.Company, error) {
	var company model.Company
	err := tx.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCompanyNotFound
		}
		return nil, translateError(err)
	}
	return &company, nil
}
