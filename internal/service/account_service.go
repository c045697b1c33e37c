package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"campuscoin/internal/model"
	"campuscoin/internal/store"
	"campuscoin/pkg/idgen"
)

type AccountService struct {
	accounts store.AccountStore
}

func NewAccountService(accounts store.AccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

type RegisterAccountRequest struct {
	Kind  model.AccountKind `json:"kind" binding:"required"`
	Name  string            `json:"name" binding:"required"`
	Email string            `json:"email" binding:"required"`
}

// Register 开户，余额从 0 开始，只能通过 ExchangeService 变动
func (s *AccountService) Register(ctx context.Context, req *RegisterAccountRequest) (*model.Account, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: 未知账户类型 %q", model.ErrInvalidArgument, req.Kind)
	}
	name, email, err := normalizeContact(req.Name, req.Email)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:    idgen.NewID(),
		Kind:  req.Kind,
		Name:  name,
		Email: email,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("创建账户失败: %w", err)
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	return s.accounts.Get(ctx, id)
}

func (s *AccountService) GetBalance(ctx context.Context, id string) (int64, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *AccountService) ListByKind(ctx context.Context, kind model.AccountKind) ([]*model.Account, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: 未知账户类型 %q", model.ErrInvalidArgument, kind)
	}
	return s.accounts.ListByKind(ctx, kind)
}

// normalizeContact 校验名称和邮箱，通知依赖邮箱可用
func normalizeContact(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", fmt.Errorf("%w: 名称不能为空", model.ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", fmt.Errorf("%w: 邮箱格式错误 %q", model.ErrInvalidArgument, email)
	}
	return name, email, nil
}
