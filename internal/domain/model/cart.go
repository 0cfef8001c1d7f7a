package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusOpen    CartStatus = "OPEN"
	CartStatusLocked  CartStatus = "LOCKED"  // 結帳轉訂單中，不可再變更項目
	CartStatusExpired CartStatus = "EXPIRED" // 終態，項目已清除
)

// 購物車
// UserID = 0 表示匿名購物車，由 SessionKey 識別
// 同一 user 或同一 session 同時間只會有一個 OPEN 購物車(由查詢後建立保證，非DB約束)
type Cart struct {
	CartID     string     `gorm:"primaryKey;type:varchar(36)" json:"cart_id"`
	UserID     int        `gorm:"not null;default:0;index" json:"user_id"`
	SessionKey string     `gorm:"type:varchar(64);index" json:"session_key"`
	Status     CartStatus `gorm:"not null;type:varchar(12);default:OPEN" json:"status"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	BaseModel
}

type CartItem struct {
	CartID    string          `gorm:"primaryKey;type:varchar(36)" json:"cart_id"`
	ProductID string          `gorm:"primaryKey;type:varchar(255)" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"not null;type:decimal(10,2)" json:"unit_price"`
	BaseModel
}

func (i *CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) IsOpen() bool {
	return c.Status == CartStatusOpen
}

// Total 即時重算，不做快取
func (c *Cart) Total() decimal.Decimal {
	total := decimal.NewFromInt(0)
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal())
	}
	return total
}

// Lock OPEN -> LOCKED，非OPEN不動作
func (c *Cart) Lock() bool {
	if c.Status != CartStatusOpen {
		return false
	}
	c.Status = CartStatusLocked
	return true
}

// Unlock LOCKED -> OPEN，結帳失敗回復用
func (c *Cart) Unlock() bool {
	if c.Status != CartStatusLocked {
		return false
	}
	c.Status = CartStatusOpen
	return true
}

// Expire 任意狀態 -> EXPIRED，冪等
func (c *Cart) Expire() {
	c.Status = CartStatusExpired
}

// Stale 閒置超過ttl
func (c *Cart) Stale(now time.Time, ttl time.Duration) bool {
	last := c.UpdatedAt
	if last.IsZero() {
		last = c.CreatedAt
	}
	return now.Sub(last) > ttl
}

// Claimed 是否已被帳號認領
func (c *Cart) Claimed() bool {
	return c.UserID != 0
}

func (c *Cart) ItemCount() int {
	return len(c.Items)
}
