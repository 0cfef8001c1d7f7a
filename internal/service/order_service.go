package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/google/uuid"
)

// ErrCartNotLocked 只有LOCKED購物車能轉訂單
var ErrCartNotLocked = errors.New("cart must be locked to create order")

type IOrderService interface {
	CreateFromCart(ctx context.Context, txDao *db.DbDao, cart *model.Cart, userID int) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int) ([]model.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]model.Order, int64, error)
	MarkShipped(ctx context.Context, orderID, carrier, trackingCode string) (bool, error)
	MarkDelivered(ctx context.Context, orderID string) (bool, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// OrderService 訂單工廠與狀態轉移
type OrderService struct {
	orderRepo *db.OrderRepo
}

func NewOrderService(orderRepo *db.OrderRepo) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// NewOrderNumber 產生訂單編號 GB-XXXXXXXX
func NewOrderNumber() string {
	return fmt.Sprintf("GB-%s", strings.ToUpper(uuid.NewString()[:8]))
}

// CreateFromCart 由LOCKED購物車產生不可變訂單
// 項目複製自購物車項目並凍結單價，之後購物車怎麼變都影響不到訂單
// txDao非nil時在該交易內寫入
// 錯誤:
//   - ErrCartNotLocked: 購物車不是LOCKED
func (s *OrderService) CreateFromCart(ctx context.Context, txDao *db.DbDao, cart *model.Cart, userID int) (*model.Order, error) {
	if cart.Status != model.CartStatusLocked {
		return nil, ErrCartNotLocked
	}

	order := &model.Order{
		OrderID:   uuid.NewString(),
		Number:    NewOrderNumber(),
		UserID:    userID,
		Status:    model.OrderStatusPending,
		OrderDate: time.Now(),
	}
	for i := range cart.Items {
		it := &cart.Items[i]
		order.OrderItems = append(order.OrderItems, model.OrderItem{
			OrderID:   order.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	order.RecomputeTotal()

	repo := s.orderRepo
	if txDao != nil {
		repo = repo.WithTx(txDao)
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.orderRepo.GetOrderByID(ctx, orderID)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	return s.orderRepo.GetOrderByNumber(ctx, number)
}

func (s *OrderService) GetOrdersByUserID(ctx context.Context, userID int) ([]model.Order, error) {
	return s.orderRepo.GetOrdersByUserID(ctx, userID)
}

// ListOrders 後台訂單分頁查詢，回傳當頁資料與總筆數
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int) ([]model.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.orderRepo.GetOrdersPaginated(ctx, page, pageSize)
}

// MarkShipped PAID -> SHIPPED，記shipped_at與物流資訊
// 來源狀態不符時不動作，回傳false
func (s *OrderService) MarkShipped(ctx context.Context, orderID, carrier, trackingCode string) (bool, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !order.MarkShipped(time.Now()) {
		return false, nil
	}
	order.SetTracking(carrier, trackingCode)
	if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}

// MarkDelivered SHIPPED -> DELIVERED，記delivered_at
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (bool, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !order.MarkDelivered(time.Now()) {
		return false, nil
	}
	if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}

// CancelOrder PENDING/PAID -> CANCELLED
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !order.Cancel() {
		return false, nil
	}
	if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}

var _ IOrderService = (*OrderService)(nil)
