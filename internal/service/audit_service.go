package service

import (
	"context"
	"fmt"

	"campuscoin/internal/model"
	"campuscoin/internal/store"
)

// Discrepancy 账户余额与流水重算结果不一致
type Discrepancy struct {
	AccountID string            `json:"account_id"`
	Kind      model.AccountKind `json:"kind"`
	Stored    int64             `json:"stored"`
	Expected  int64             `json:"expected"`
	Reason    string            `json:"reason"`
}

const (
	ReasonMismatch        = "balance_mismatch"
	ReasonNegativeBalance = "negative_balance"
)

// AuditService 用流水重算每个账户的余额并与存储值比对
//
// 余额 = Σ 该账户作为入账方的数量 - Σ 作为出账方的数量，规则见 TransactionEntry.Delta
type AuditService struct {
	accounts store.AccountStore
	log      store.TransactionLog
}

func NewAuditService(accounts store.AccountStore, log store.TransactionLog) *AuditService {
	return &AuditService{accounts: accounts, log: log}
}

func (s *AuditService) Verify(ctx context.Context) ([]Discrepancy, error) {
	var out []Discrepancy
	for _, kind := range []model.AccountKind{model.AccountKindTeacher, model.AccountKindStudent} {
		accounts, err := s.accounts.ListByKind(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("查询账户失败: %w", err)
		}
		for _, account := range accounts {
			d, err := s.VerifyAccount(ctx, account)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		}
	}
	return out, nil
}

func (s *AuditService) VerifyAccount(ctx context.Context, account *model.Account) ([]Discrepancy, error) {
	var (
		entries []*model.TransactionEntry
		err     error
	)
	if account.Kind == model.AccountKindTeacher {
		entries, err = s.log.ByTeacher(ctx, account.ID)
	} else {
		entries, err = s.log.ByStudent(ctx, account.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: account=%s: %w", account.ID, err)
	}

	var expected int64
	for _, e := range entries {
		expected += e.Delta(account)
	}

	var out []Discrepancy
	if expected != account.Balance {
		out = append(out, Discrepancy{
			AccountID: account.ID, Kind: account.Kind,
			Stored: account.Balance, Expected: expected, Reason: ReasonMismatch,
		})
	}
	if account.Balance < 0 {
		out = append(out, Discrepancy{
			AccountID: account.ID, Kind: account.Kind,
			Stored: account.Balance, Expected: expected, Reason: ReasonNegativeBalance,
		})
	}
	return out, nil
}
