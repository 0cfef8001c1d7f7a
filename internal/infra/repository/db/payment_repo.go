package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPaymentNotFound 付款不存在
var ErrPaymentNotFound = errors.New("payment not found")

type IPaymentRepository interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	GetByOrderIDForUpdate(ctx context.Context, orderID string) (*model.Payment, error)
	UpdatePayment(ctx context.Context, payment *model.Payment) error
}

type PaymentRepo struct {
	db *DbDao
}

func NewPaymentRepo(db *DbDao) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (s *PaymentRepo) WithTx(txDao *DbDao) *PaymentRepo {
	return &PaymentRepo{db: txDao}
}

func (s *PaymentRepo) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *PaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := s.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrderIDForUpdate 取排他鎖 SELECT ... FOR UPDATE
// 套用外部金流回報時鎖住付款列，冪等旗標的檢查與設定才不會交錯
func (s *PaymentRepo) GetByOrderIDForUpdate(ctx context.Context, orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentRepo) UpdatePayment(ctx context.Context, payment *model.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

var _ IPaymentRepository = (*PaymentRepo)(nil)
