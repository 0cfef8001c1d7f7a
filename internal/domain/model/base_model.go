package model

import (
	"time"
)

// 共用時間戳欄位
// 購物車項目會被真實刪除(數量歸零/合併/清空)，所以不使用軟刪除，
// 避免複合主鍵與已刪除列衝突
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"null" json:"updated_at"`
}
