package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/redis_repo"
	"go.uber.org/zap"
)

var (
	// ErrNotAuthenticated 結帳需要登入，呼叫端應導向登入並保留目標
	ErrNotAuthenticated = errors.New("authentication required for checkout")
	// ErrCartEmpty 空購物車不結帳
	ErrCartEmpty = errors.New("cart has no items")
)

// PaymentProviderManual 同步手動金流
const PaymentProviderManual = "manual"

type ICheckoutService interface {
	Checkout(ctx context.Context, sessionKey, cartID string, userID int) (*model.Order, error)
}

/*
CheckoutService 結帳協調

Checkout在單一交易內執行:

 1. 驗證登入
 2. 逐項檢查數量不超過可售庫存，違反則整筆失敗，購物車維持OPEN
 3. 鎖定購物車
 4. 由購物車產生訂單
 5. 建立AUTHORIZED付款並立即回報CAPTURED(同步手動金流)，
    驅動預留->捕獲的庫存搬動與訂單轉PAID
 6. 清空並過期購物車
 7. 交易提交後把session指標解除

任何一步失敗整筆rollback: 不會留下LOCKED卻沒訂單的購物車，
也不會有動了庫存卻沒有訂單/付款的狀態
*/
type CheckoutService struct {
	dao            *db.DbDao
	cartRepo       *db.CartRepo
	inventoryRepo  *db.InventoryRepo
	orderService   *OrderService
	paymentService *PaymentService
	sessionRepo    redis_repo.ISessionRepository
	logger         *zap.Logger
}

func NewCheckoutService(
	dao *db.DbDao,
	cartRepo *db.CartRepo,
	inventoryRepo *db.InventoryRepo,
	orderService *OrderService,
	paymentService *PaymentService,
	sessionRepo redis_repo.ISessionRepository,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		dao:            dao,
		cartRepo:       cartRepo,
		inventoryRepo:  inventoryRepo,
		orderService:   orderService,
		paymentService: paymentService,
		sessionRepo:    sessionRepo,
		logger:         logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, sessionKey, cartID string, userID int) (*model.Order, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}

	var order *model.Order
	err := s.dao.ExecTx(ctx, func(txDao *db.DbDao) error {
		txCart := s.cartRepo.WithTx(txDao)
		txInv := s.inventoryRepo.WithTx(txDao)

		cart, err := txCart.GetCartByID(ctx, cartID)
		if err != nil {
			return err
		}
		if !cart.IsOpen() {
			return ErrCartNotOpen
		}
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}

		// 先驗證再鎖定，違反時購物車原封不動讓買家調整數量
		for i := range cart.Items {
			it := &cart.Items[i]
			available, err := txInv.Available(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if it.Quantity > available {
				return fmt.Errorf("%w: product %s requested %d available %d",
					db.ErrInsufficientStock, it.ProductID, it.Quantity, available)
			}
		}

		// 條件更新搶鎖: 兩個併發結帳只有一個能把OPEN翻成LOCKED
		locked, err := txCart.TransitionCartStatus(ctx, cart.CartID, model.CartStatusOpen, model.CartStatusLocked)
		if err != nil {
			return err
		}
		if !locked {
			return ErrCartNotOpen
		}
		cart.Lock()

		order, err = s.orderService.CreateFromCart(ctx, txDao, cart, userID)
		if err != nil {
			return err
		}

		// 同步手動金流: 授權(預留)後立即捕獲(扣庫存、訂單轉PAID)
		if _, err := s.paymentService.createAuthorizedTx(ctx, txDao, order, PaymentProviderManual); err != nil {
			return err
		}
		if err := s.paymentService.applyStatusTx(ctx, txDao, PaymentStatusReport{
			OrderID:       order.OrderID,
			Status:        model.PaymentStatusCaptured,
			TransactionID: fmt.Sprintf("MAN-%s", order.Number),
		}); err != nil {
			return err
		}

		if err := txCart.DeleteAllItems(ctx, cart.CartID); err != nil {
			return err
		}
		return txCart.UpdateCartStatus(ctx, cart.CartID, model.CartStatusExpired)
	})
	if err != nil {
		return nil, err
	}

	// 交易已提交，session不再指向這個購物車
	if sessionKey != "" {
		if err := s.sessionRepo.ClearCartID(ctx, sessionKey); err != nil {
			s.logger.Warn("failed to detach session cart after checkout",
				zap.String("session_key", sessionKey), zap.Error(err))
		}
	}

	// 回傳提交後的最終狀態
	final, err := s.orderService.GetOrder(ctx, order.OrderID)
	if err != nil {
		return order, nil
	}

	s.logger.Info("checkout completed",
		zap.String("order_number", final.Number),
		zap.Int("user_id", userID),
		zap.String("amount", final.Amount.String()))
	return final, nil
}

var _ ICheckoutService = (*CheckoutService)(nil)
