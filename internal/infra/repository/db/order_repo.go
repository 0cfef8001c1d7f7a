package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"gorm.io/gorm"
)

// ErrOrderNotFound 訂單不存在
var ErrOrderNotFound = errors.New("order not found")

type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int) ([]model.Order, error)
	GetOrdersPaginated(ctx context.Context, page, pageSize int) ([]model.Order, int64, error)
	UpdateOrder(ctx context.Context, order *model.Order) error
	GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
}

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

func (s *OrderRepo) WithTx(txDao *DbDao) *OrderRepo {
	return &OrderRepo{db: txDao}
}

// Create - 創建訂單，項目一併寫入
func (s *OrderRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// Read - 根據ID查詢訂單
func (s *OrderRepo) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("OrderItems").First(&order, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Read - 根據訂單編號查詢
func (s *OrderRepo) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("OrderItems").First(&order, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Read - 根據用戶ID查詢訂單
func (s *OrderRepo) GetOrdersByUserID(ctx context.Context, userID int) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// 分頁查詢訂單
func (s *OrderRepo) GetOrdersPaginated(ctx context.Context, page, pageSize int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	offset := (page - 1) * pageSize

	s.db.WithContext(ctx).Model(&model.Order{}).Count(&total)

	err := s.db.WithContext(ctx).Preload("OrderItems").
		Offset(offset).Limit(pageSize).Find(&orders).Error

	return orders, total, err
}

// Update - 更新訂單(狀態轉移後保存)
func (s *OrderRepo) UpdateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Save(order).Error
}

// 取得訂單項目
func (s *OrderRepo) GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

var _ IOrderRepository = (*OrderRepo)(nil)
