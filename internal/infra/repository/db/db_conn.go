package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnOpts postgres連線參數
type ConnOpts struct {
	DbName   string
	Host     string
	Port     string
	User     string
	Password string
	SSLMode  string // 空值視為disable
}

func (o ConnOpts) dsn() string {
	sslmode := o.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		o.User, o.Password, o.Host, o.Port, o.DbName, sslmode)
}

// GetDbConn 建立postgres連線
func GetDbConn(opts ConnOpts) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(opts.dsn()), &gorm.Config{})
}
