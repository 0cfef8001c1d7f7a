package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   string           `gorm:"primaryKey;type:varchar(255)" json:"product_id"`
	Code        string           `gorm:"not null;type:varchar(100);unique" json:"code"`
	Name        string           `gorm:"not null;type:varchar(160)" json:"name"`
	Price       decimal.Decimal  `gorm:"not null;type:decimal(10,2)" json:"price"`
	Active      bool             `gorm:"not null;default:true" json:"active"`
	Category    string           `gorm:"type:varchar(50)" json:"category"`
	Description string           `gorm:"type:text" json:"description"`
	Inventory   *InventoryRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"inventory,omitempty"`
	BaseModel
}

// 庫存紀錄 與商品一對一，隨商品建立
// 不變量: 0 <= reserved <= stock
// 只能透過 InventoryRepo 的 Reserve/Release/Commit 變更，且都在記錄鎖下執行
type InventoryRecord struct {
	ProductID string `gorm:"primaryKey;type:varchar(255)" json:"product_id"`
	SKU       string `gorm:"not null;type:varchar(80);unique" json:"sku"`
	Stock     int    `gorm:"not null;default:0" json:"stock"`
	Reserved  int    `gorm:"not null;default:0" json:"reserved"`
	BaseModel
}

// 可售數量 stock - reserved
func (i *InventoryRecord) Available() int {
	return i.Stock - i.Reserved
}

func (i *InventoryRecord) CanReserve(qty int) bool {
	return i.Available() >= qty
}

// NewInventorySKU 商品建立時預設的SKU
func NewInventorySKU(productID string) string {
	if len(productID) > 8 {
		productID = productID[:8]
	}
	return fmt.Sprintf("SKU-%s", productID)
}
