package model

type User struct {
	UserID      int     `gorm:"primaryKey" json:"user_id"`
	UserName    string  `gorm:"not null;type:varchar(50)" json:"user_name"`
	UserEmail   string  `gorm:"unique;not null;type:varchar(50)" json:"user_email"`
	UserAddress string  `gorm:"type:varchar(255)" json:"user_address"`
	Orders      []Order `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"orders,omitempty"`
	BaseModel
}
