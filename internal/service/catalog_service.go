package service

import (
	"context"
	"fmt"
	"strings"

	"campuscoin/internal/model"
	"campuscoin/internal/store"
	"campuscoin/pkg/idgen"
)

// CatalogService 管理企业的优惠目录
// 删除只打墓碑，已有兑换记录和流水仍可引用
type CatalogService struct {
	catalog   store.AdvantageCatalog
	companies store.CompanyDirectory
}

func NewCatalogService(catalog store.AdvantageCatalog, companies store.CompanyDirectory) *CatalogService {
	return &CatalogService{catalog: catalog, companies: companies}
}

type AdvantageRequest struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price"`
}

func (s *CatalogService) Create(ctx context.Context, companyID string, req *AdvantageRequest) (*model.Advantage, error) {
	name, err := validateAdvantage(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}

	advantage := &model.Advantage{
		ID:        idgen.NewID(),
		CompanyID: companyID,
		Name:      name,
		Price:     req.Price,
	}
	if err := s.catalog.Create(ctx, advantage); err != nil {
		return nil, fmt.Errorf("创建优惠失败: %w", err)
	}
	return advantage, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*model.Advantage, error) {
	return s.catalog.Get(ctx, id)
}

func (s *CatalogService) ListByCompany(ctx context.Context, companyID string) ([]*model.Advantage, error) {
	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}
	return s.catalog.ListByCompany(ctx, companyID)
}

// Update 只影响之后的兑换，历史流水保留兑换时的价格
func (s *CatalogService) Update(ctx context.Context, id string, req *AdvantageRequest) (*model.Advantage, error) {
	name, err := validateAdvantage(req)
	if err != nil {
		return nil, err
	}
	return s.catalog.Update(ctx, id, name, req.Price)
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return s.catalog.Delete(ctx, id)
}

func validateAdvantage(req *AdvantageRequest) (string, error) {
	if req.Price <= 0 {
		return "", fmt.Errorf("%w: price=%d", model.ErrInvalidAmount, req.Price)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fmt.Errorf("%w: 优惠名称不能为空", model.ErrInvalidArgument)
	}
	return name, nil
}
