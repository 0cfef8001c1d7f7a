package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"gorm.io/gorm"
)

// ErrProductNotFound 商品不存在
var ErrProductNotFound = errors.New("product not found")

type IProductRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProductByID(ctx context.Context, productID string) (*model.Product, error)
	GetProductByCode(ctx context.Context, code string) (*model.Product, error)
	GetActiveProducts(ctx context.Context) ([]model.Product, error)
	GetProductsInStock(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product) error
}

type ProductRepo struct {
	db *DbDao
}

func NewProductRepo(db *DbDao) *ProductRepo {
	return &ProductRepo{db: db}
}

func (s *ProductRepo) WithTx(txDao *DbDao) *ProductRepo {
	return &ProductRepo{db: txDao}
}

// CreateProduct 商品與庫存紀錄一起建立(一對一，隨商品存在)
func (s *ProductRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		if product.Inventory == nil {
			product.Inventory = &model.InventoryRecord{
				ProductID: product.ProductID,
				SKU:       model.NewInventorySKU(product.ProductID),
			}
			return tx.Create(product.Inventory).Error
		}
		return nil
	})
}

func (s *ProductRepo) GetProductByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Preload("Inventory").
		First(&product, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductRepo) GetProductByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Preload("Inventory").
		First(&product, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductRepo) GetActiveProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Preload("Inventory").
		Where("active = ?", true).
		Find(&products).Error
	return products, err
}

// GetProductsInStock 可售商品 stock > reserved
func (s *ProductRepo) GetProductsInStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Preload("Inventory").
		Joins("JOIN inventory_records ON inventory_records.product_id = products.product_id").
		Where("products.active = ? AND inventory_records.stock > inventory_records.reserved", true).
		Find(&products).Error
	return products, err
}

func (s *ProductRepo) UpdateProduct(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Omit("Inventory").Save(product).Error
}

var _ IProductRepository = (*ProductRepo)(nil)
