package service

import (
	"context"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
)

type IInventoryService interface {
	CheckStockEnough(ctx context.Context, productID string, quantity int) (bool, error)
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
	Commit(ctx context.Context, productID string, quantity int) error
	Available(ctx context.Context, productID string) (int, error)
	AddStock(ctx context.Context, productID string, quantity int) (int, error)
	GetRecord(ctx context.Context, productID string) (*model.InventoryRecord, error)
}

// InventoryService 庫存帳本對外入口
// 實際的鎖與交易邊界在repo層，這裡只做組合
type InventoryService struct {
	inventoryRepo db.IInventoryRepository
}

func NewInventoryService(inventoryRepo db.IInventoryRepository) *InventoryService {
	return &InventoryService{inventoryRepo: inventoryRepo}
}

// 檢查可售庫存是否足夠
// 近似讀，最終判斷在Reserve/Commit的鎖下
func (s *InventoryService) CheckStockEnough(ctx context.Context, productID string, quantity int) (bool, error) {
	available, err := s.inventoryRepo.Available(ctx, productID)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

func (s *InventoryService) Reserve(ctx context.Context, productID string, quantity int) error {
	return s.inventoryRepo.Reserve(ctx, productID, quantity)
}

func (s *InventoryService) Release(ctx context.Context, productID string, quantity int) error {
	return s.inventoryRepo.Release(ctx, productID, quantity)
}

func (s *InventoryService) Commit(ctx context.Context, productID string, quantity int) error {
	return s.inventoryRepo.Commit(ctx, productID, quantity)
}

func (s *InventoryService) Available(ctx context.Context, productID string) (int, error) {
	return s.inventoryRepo.Available(ctx, productID)
}

// AddStock 進貨補庫存
func (s *InventoryService) AddStock(ctx context.Context, productID string, quantity int) (int, error) {
	return s.inventoryRepo.AddStock(ctx, productID, quantity)
}

func (s *InventoryService) GetRecord(ctx context.Context, productID string) (*model.InventoryRecord, error) {
	return s.inventoryRepo.GetByProductID(ctx, productID)
}

var _ IInventoryService = (*InventoryService)(nil)
