package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInventoryNotFound 庫存紀錄不存在
	ErrInventoryNotFound = errors.New("inventory record not found")
	// ErrInsufficientStock 可售庫存不足
	ErrInsufficientStock = errors.New("insufficient stock")
)

// IInventoryRepository 庫存帳本
// Reserve/Release/Commit 皆為單筆交易，對同一商品的庫存紀錄取排他鎖後才異動，
// 保證同商品的併發操作線性化；不同商品彼此不互斥
type IInventoryRepository interface {
	CreateRecord(ctx context.Context, record *model.InventoryRecord) error
	GetByProductID(ctx context.Context, productID string) (*model.InventoryRecord, error)
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	Commit(ctx context.Context, productID string, qty int) error
	Available(ctx context.Context, productID string) (int, error)
	AddStock(ctx context.Context, productID string, qty int) (int, error)
}

type InventoryRepo struct {
	db *DbDao
}

func NewInventoryRepo(db *DbDao) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// WithTx 回傳綁定在外部交易上的repo
func (s *InventoryRepo) WithTx(txDao *DbDao) *InventoryRepo {
	return &InventoryRepo{db: txDao}
}

func (s *InventoryRepo) CreateRecord(ctx context.Context, record *model.InventoryRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *InventoryRepo) GetByProductID(ctx context.Context, productID string) (*model.InventoryRecord, error) {
	var record model.InventoryRecord
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// 鎖定單筆庫存紀錄 SELECT ... FOR UPDATE
func lockRecord(tx *gorm.DB, productID string) (*model.InventoryRecord, error) {
	var record model.InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Reserve 預留庫存 reserved += qty
// qty <= 0 不動作
// 錯誤:
//   - ErrInsufficientStock: qty 超過 stock - reserved
//   - ErrInventoryNotFound: 庫存紀錄不存在
func (s *InventoryRepo) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, productID)
		if err != nil {
			return err
		}

		if !record.CanReserve(qty) {
			return fmt.Errorf("%w: product %s requested %d available %d",
				ErrInsufficientStock, productID, qty, record.Available())
		}

		return tx.Model(&model.InventoryRecord{}).
			Where("product_id = ?", productID).
			Update("reserved", gorm.Expr("reserved + ?", qty)).Error
	})
}

// Release 釋放預留 reserved = max(0, reserved - qty)
// 超量釋放夾到0而不是錯誤，重複釋放因此無害
func (s *InventoryRepo) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, productID)
		if err != nil {
			return err
		}

		released := record.Reserved - qty
		if released < 0 {
			released = 0
		}

		return tx.Model(&model.InventoryRecord{}).
			Where("product_id = ?", productID).
			Update("reserved", released).Error
	})
}

// Commit 預留轉為實際消耗: stock -= qty; reserved = max(0, reserved - qty)
// 預留不足時照樣扣庫存，讓跳過授權的捕獲仍能成立，
// reserved一律夾到0以上，維持 0 <= reserved <= stock
// 錯誤:
//   - ErrInsufficientStock: qty 超過 stock
func (s *InventoryRepo) Commit(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, productID)
		if err != nil {
			return err
		}

		if qty > record.Stock {
			return fmt.Errorf("%w: product %s requested %d stock %d",
				ErrInsufficientStock, productID, qty, record.Stock)
		}

		released := record.Reserved - qty
		if released < 0 {
			released = 0
		}

		return tx.Model(&model.InventoryRecord{}).
			Where("product_id = ?", productID).
			Updates(map[string]interface{}{
				"reserved": released,
				"stock":    gorm.Expr("stock - ?", qty),
			}).Error
	})
}

// Available 近似讀，不取鎖
// 需要一致性判斷的呼叫端要在異動時於鎖下重查
func (s *InventoryRepo) Available(ctx context.Context, productID string) (int, error) {
	record, err := s.GetByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return record.Available(), nil
}

// AddStock 進貨補庫存，回傳補貨後stock
func (s *InventoryRepo) AddStock(ctx context.Context, productID string, qty int) (int, error) {
	if qty <= 0 {
		record, err := s.GetByProductID(ctx, productID)
		if err != nil {
			return 0, err
		}
		return record.Stock, nil
	}

	var currentStock int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, productID)
		if err != nil {
			return err
		}

		if err := tx.Model(&model.InventoryRecord{}).
			Where("product_id = ?", productID).
			Update("stock", gorm.Expr("stock + ?", qty)).Error; err != nil {
			return err
		}

		currentStock = record.Stock + qty
		return nil
	})
	if err != nil {
		return 0, err
	}
	return currentStock, nil
}

var _ IInventoryRepository = (*InventoryRepo)(nil)
