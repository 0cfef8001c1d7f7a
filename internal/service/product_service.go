package service

import (
	"context"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IProductService interface {
	CreateProduct(ctx context.Context, code, name string, price decimal.Decimal) (*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetProductByCode(ctx context.Context, code string) (*model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
	ListSellable(ctx context.Context) ([]model.Product, error)
	SetActive(ctx context.Context, productID string, active bool) error
	UpdatePrice(ctx context.Context, productID string, price decimal.Decimal) error
}

// ProductService 型錄表面
// 購物車只讀現價與active，庫存數字歸庫存帳本管
type ProductService struct {
	productRepo db.IProductRepository
}

func NewProductService(productRepo db.IProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProduct 建立商品，庫存紀錄跟著商品一起建立
func (s *ProductService) CreateProduct(ctx context.Context, code, name string, price decimal.Decimal) (*model.Product, error) {
	product := &model.Product{
		ProductID: uuid.NewString(),
		Code:      code,
		Name:      name,
		Price:     price,
		Active:    true,
	}
	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return s.productRepo.GetProductByID(ctx, productID)
}

func (s *ProductService) GetProductByCode(ctx context.Context, code string) (*model.Product, error) {
	return s.productRepo.GetProductByCode(ctx, code)
}

func (s *ProductService) ListActive(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.GetActiveProducts(ctx)
}

// ListSellable active且可售數量大於0
func (s *ProductService) ListSellable(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.GetProductsInStock(ctx)
}

// SetActive 下架不影響已放進購物車的項目，結帳時才會再驗
func (s *ProductService) SetActive(ctx context.Context, productID string, active bool) error {
	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	product.Active = active
	return s.productRepo.UpdateProduct(ctx, product)
}

func (s *ProductService) UpdatePrice(ctx context.Context, productID string, price decimal.Decimal) error {
	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	product.Price = price
	return s.productRepo.UpdateProduct(ctx, product)
}

var _ IProductService = (*ProductService)(nil)
