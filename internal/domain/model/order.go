package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED" // 終態
	OrderStatusCancelled OrderStatus = "CANCELLED" // 終態
)

// 訂單 由 LOCKED 購物車產生後不可變，項目為複製非引用
type Order struct {
	OrderID      string          `gorm:"primaryKey;type:varchar(36)" json:"order_id"`
	Number       string          `gorm:"not null;type:varchar(30);unique" json:"number"`
	UserID       int             `gorm:"not null;index" json:"user_id"`
	Status       OrderStatus     `gorm:"not null;type:varchar(12);default:PENDING" json:"status"`
	Amount       decimal.Decimal `gorm:"not null;type:decimal(12,2)" json:"amount"`
	OrderDate    time.Time       `gorm:"not null" json:"order_date"`
	Carrier      string          `gorm:"type:varchar(40)" json:"carrier"`
	TrackingCode string          `gorm:"type:varchar(80)" json:"tracking_code"`
	ShippedAt    *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	OrderItems   []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
	BaseModel
}

type OrderItem struct {
	OrderID   string          `gorm:"primaryKey;type:varchar(36)" json:"order_id"`
	ProductID string          `gorm:"primaryKey;type:varchar(255)" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"not null;type:decimal(10,2)" json:"unit_price"`
	BaseModel
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RecomputeTotal 由項目重算總額
func (o *Order) RecomputeTotal() {
	total := decimal.NewFromInt(0)
	for i := range o.OrderItems {
		total = total.Add(o.OrderItems[i].Subtotal())
	}
	o.Amount = total
}

// 狀態機: 來源狀態不符時不動作並回傳false，呼叫端以回傳值判斷
// DELIVERED為終態。CANCELLED只接受MarkPaid(取消後付款才到帳的補救路徑)
// no-op而非錯誤，讓後台批次操作可以冪等重跑

func (o *Order) MarkPaid() bool {
	if o.Status != OrderStatusPending && o.Status != OrderStatusCancelled {
		return false
	}
	o.Status = OrderStatusPaid
	return true
}

func (o *Order) MarkShipped(now time.Time) bool {
	if o.Status != OrderStatusPaid {
		return false
	}
	o.Status = OrderStatusShipped
	o.ShippedAt = &now
	return true
}

func (o *Order) MarkDelivered(now time.Time) bool {
	if o.Status != OrderStatusShipped {
		return false
	}
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	return true
}

func (o *Order) Cancel() bool {
	if o.Status != OrderStatusPending && o.Status != OrderStatusPaid {
		return false
	}
	o.Status = OrderStatusCancelled
	return true
}

// SetTracking 出貨後補登物流資訊
func (o *Order) SetTracking(carrier, trackingCode string) {
	o.Carrier = carrier
	o.TrackingCode = trackingCode
}
