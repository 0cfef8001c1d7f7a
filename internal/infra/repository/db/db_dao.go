package db

import (
	"context"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"gorm.io/gorm"
)

type DbDao struct {
	*gorm.DB
}

func NewDbDao(conn *gorm.DB) *DbDao {
	return &DbDao{
		DB: conn,
	}
}

// 初始化db schema
// 冪等性
func (d *DbDao) InitMigrate() error {
	return d.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.InventoryRecord{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
	)
}

// WithTx 取得綁定在tx上的DbDao，讓多個repo共用同一筆交易
func (d *DbDao) WithTx(tx *gorm.DB) *DbDao {
	return &DbDao{DB: tx}
}

// ExecTx 在單一交易內執行fn，fn回傳錯誤則整筆rollback
func (d *DbDao) ExecTx(ctx context.Context, fn func(txDao *DbDao) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(d.WithTx(tx))
	})
}
