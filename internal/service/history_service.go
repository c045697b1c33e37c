package service

import (
	"context"

	"campuscoin/internal/model"
	"campuscoin/internal/store"
)

// HistoryService 只读查询，结果按写入顺序返回
type HistoryService struct {
	log         store.TransactionLog
	redemptions store.RedemptionRegistry
}

func NewHistoryService(log store.TransactionLog, redemptions store.RedemptionRegistry) *HistoryService {
	return &HistoryService{log: log, redemptions: redemptions}
}

func (s *HistoryService) StudentEntries(ctx context.Context, studentID string) ([]*model.TransactionEntry, error) {
	return s.log.ByStudent(ctx, studentID)
}

// TeacherEntries 包含教师收到的发放和发出的转账
func (s *HistoryService) TeacherEntries(ctx context.Context, teacherID string) ([]*model.TransactionEntry, error) {
	return s.log.ByTeacher(ctx, teacherID)
}

func (s *HistoryService) CompanyEntries(ctx context.Context, companyID string) ([]*model.TransactionEntry, error) {
	return s.log.ByCompany(ctx, companyID)
}

func (s *HistoryService) StudentRedemptions(ctx context.Context, studentID string) ([]*model.Redemption, error) {
	return s.redemptions.ByStudent(ctx, studentID)
}

func (s *HistoryService) AdvantageRedemptions(ctx context.Context, advantageID string) ([]*model.Redemption, error) {
	return s.redemptions.ByAdvantage(ctx, advantageID)
}
