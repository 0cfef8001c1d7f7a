package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// 付款 與訂單一對一
// ReservationApplied / CaptureApplied 為冪等旗標:
// 外部金流回報至少一次送達，同一狀態重複回報不可重複搬動庫存
type Payment struct {
	PaymentID          string          `gorm:"primaryKey;type:varchar(36)" json:"payment_id"`
	OrderID            string          `gorm:"not null;type:varchar(36);unique" json:"order_id"`
	Provider           string          `gorm:"not null;type:varchar(40)" json:"provider"`
	TransactionID      string          `gorm:"type:varchar(80)" json:"transaction_id"`
	Amount             decimal.Decimal `gorm:"not null;type:decimal(12,2)" json:"amount"`
	Status             PaymentStatus   `gorm:"not null;type:varchar(12)" json:"status"`
	ReservationApplied bool            `gorm:"not null;default:false" json:"reservation_applied"`
	CaptureApplied     bool            `gorm:"not null;default:false" json:"capture_applied"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	BaseModel
}

// Releasing FAILED/CANCELLED/REFUNDED 屬釋放類狀態
func (s PaymentStatus) Releasing() bool {
	return s == PaymentStatusFailed || s == PaymentStatusCancelled || s == PaymentStatusRefunded
}
