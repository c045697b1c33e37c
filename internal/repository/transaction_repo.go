package repository

import (
	"context"

	"campuscoin/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.TransactionEntry) error {
	if tx == nil {
		tx = r.db
	}
	return translateError(tx.WithContext(ctx).Create(entry).Error)
}

func (r *TransactionRepository) ByStudent(ctx context.Context, studentID string) ([]*model.TransactionEntry, error) {
	return r.list(ctx, r.db.Where("subject_kind = ? AND subject_id = ?", model.AccountKindStudent, studentID))
}

// ByTeacher 包含教师作为主体的发放流水，以及教师作为转出方的转账流水
func (r *TransactionRepository) ByTeacher(ctx context.Context, teacherID string) ([]*model.TransactionEntry, error) {
	return r.list(ctx, r.db.
		Where("subject_kind = ? AND subject_id = ?", model.AccountKindTeacher, teacherID).
		Or("counterpart_teacher_id = ?", teacherID))
}

func (r *TransactionRepository) ByCompany(ctx context.Context, companyID string) ([]*model.TransactionEntry, error) {
	return r.list(ctx, r.db.Where("to_company_id = ?", companyID))
}

func (r *TransactionRepository) list(ctx context.Context, query *gorm.DB) ([]*model.TransactionEntry, error) {
	entries := make([]*model.TransactionEntry, 0)
	err := query.WithContext(ctx).Order("id ASC").Find(&entries).Error
	return entries, translateError(err)
}
