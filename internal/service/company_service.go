package service

import (
	"context"
	"fmt"

	"campuscoin/internal/model"
	"campuscoin/internal/store"
	"campuscoin/pkg/idgen"
)

type CompanyService struct {
	companies store.CompanyDirectory
}

func NewCompanyService(companies store.CompanyDirectory) *CompanyService {
	return &CompanyService{companies: companies}
}

type RegisterCompanyRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

func (s *CompanyService) Register(ctx context.Context, req *RegisterCompanyRequest) (*model.Company, error) {
	name, email, err := normalizeContact(req.Name, req.Email)
	if err != nil {
		return nil, err
	}

	company := &model.Company{
		ID:    idgen.NewID(),
		Name:  name,
		Email: email,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("创建企业失败: %w", err)
	}
	return company, nil
}

func (s *CompanyService) Get(ctx context.Context, id string) (*model.Company, error) {
	return s.companies.Get(ctx, id)
}
