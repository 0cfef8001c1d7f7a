package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCartNotOpen 購物車非OPEN，不可變更項目
	ErrCartNotOpen = errors.New("cart is not open")
	// ErrProductInactive 商品已下架
	ErrProductInactive = errors.New("product is not active")
)

type ICartService interface {
	GetOrCreateActiveCart(ctx context.Context, sessionKey string, userID int) (*model.Cart, error)
	GetCart(ctx context.Context, cartID string) (*model.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, qty int) (*model.CartItem, error)
	Increment(ctx context.Context, cartID, productID string) error
	Decrement(ctx context.Context, cartID, productID string) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
	LockCart(ctx context.Context, cartID string) error
	UnlockCart(ctx context.Context, cartID string) error
	ExpireCart(ctx context.Context, cartID string) error
	ExpireStaleCarts(ctx context.Context, now time.Time) (int, error)
}

// CartService 購物車操作與登入時的購物車合併解析
type CartService struct {
	dao         *db.DbDao
	cartRepo    *db.CartRepo
	productRepo db.IProductRepository
	invRepo     db.IInventoryRepository
	sessionRepo redis_repo.ISessionRepository
	cartTTL     time.Duration
	strictStock bool // 加入購物車時就檢查可售庫存
	logger      *zap.Logger
}

func NewCartService(
	dao *db.DbDao,
	cartRepo *db.CartRepo,
	productRepo db.IProductRepository,
	invRepo db.IInventoryRepository,
	sessionRepo redis_repo.ISessionRepository,
	cartTTL time.Duration,
	strictStock bool,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		dao:         dao,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		invRepo:     invRepo,
		sessionRepo: sessionRepo,
		cartTTL:     cartTTL,
		strictStock: strictStock,
		logger:      logger,
	}
}

func newOpenCart(sessionKey string, userID int) *model.Cart {
	return &model.Cart{
		CartID:     uuid.NewString(),
		UserID:     userID,
		SessionKey: sessionKey,
		Status:     model.CartStatusOpen,
	}
}

/*
GetOrCreateActiveCart 解析目前作用中的購物車

 1. session指標指向的購物車不存在或非OPEN時，建立新的OPEN購物車
 2. session購物車閒置超過TTL，過期後換新
 3. 帳號已有另一個OPEN購物車，把session購物車合併進去後過期，指標改指帳號購物車
 4. 否則若session購物車尚未被認領，認領給帳號

3-4在同一筆交易內執行，合併中斷只會留下合併前或合併後的狀態
*/
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, sessionKey string, userID int) (*model.Cart, error) {
	cart, err := s.resolveSessionCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	if userID == 0 {
		return cart, nil
	}

	resolved := cart
	err = s.dao.ExecTx(ctx, func(txDao *db.DbDao) error {
		txCart := s.cartRepo.WithTx(txDao)

		userCart, err := txCart.GetOpenCartByUserID(ctx, userID)
		if err != nil && !errors.Is(err, db.ErrCartNotFound) {
			return err
		}

		if userCart != nil && userCart.CartID != cart.CartID {
			// 帳號已有作用中購物車，session的併進去
			if err := s.mergeInto(ctx, txDao, cart, userCart); err != nil {
				return err
			}
			if err := txCart.UpdateCartStatus(ctx, cart.CartID, model.CartStatusExpired); err != nil {
				return err
			}
			resolved = userCart
			return nil
		}

		if !cart.Claimed() {
			if err := txCart.ClaimCart(ctx, cart.CartID, userID); err != nil {
				return err
			}
			cart.UserID = userID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resolved.CartID != cart.CartID {
		if err := s.sessionRepo.SetCartID(ctx, sessionKey, resolved.CartID); err != nil {
			s.logger.Warn("failed to repoint session cart",
				zap.String("session_key", sessionKey), zap.Error(err))
		}
		// 合併後重讀，項目數量已變
		return s.cartRepo.GetCartByID(ctx, resolved.CartID)
	}
	return resolved, nil
}

// resolveSessionCart 確保session有一個OPEN且未過期的購物車
func (s *CartService) resolveSessionCart(ctx context.Context, sessionKey string) (*model.Cart, error) {
	var cart *model.Cart

	cartID, err := s.sessionRepo.GetCartID(ctx, sessionKey)
	if err != nil && !errors.Is(err, redis_repo.ErrSessionCartNotFound) {
		return nil, err
	}
	if cartID != "" {
		cart, err = s.cartRepo.GetCartByID(ctx, cartID)
		if err != nil && !errors.Is(err, db.ErrCartNotFound) {
			return nil, err
		}
	}

	// redis指標遺失時回postgres找同session的OPEN購物車，避免項目跟著指標一起丟
	if cart == nil {
		cart, err = s.cartRepo.GetOpenCartBySessionKey(ctx, sessionKey)
		if err != nil && !errors.Is(err, db.ErrCartNotFound) {
			return nil, err
		}
	}

	if cart != nil && cart.IsOpen() && cart.Stale(time.Now(), s.cartTTL) {
		if err := s.ExpireCart(ctx, cart.CartID); err != nil {
			return nil, err
		}
		cart = nil
	}

	if cart == nil || !cart.IsOpen() {
		cart = newOpenCart(sessionKey, 0)
		if err := s.cartRepo.CreateCart(ctx, cart); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.SetCartID(ctx, sessionKey, cart.CartID); err != nil {
		s.logger.Warn("failed to set session cart pointer",
			zap.String("session_key", sessionKey), zap.Error(err))
	}
	return cart, nil
}

// mergeInto 把src的項目併入dst，同商品數量相加且保留dst單價，最後清空src項目
// 只搬項目不動src狀態，由呼叫端決定後續(通常接著過期)
func (s *CartService) mergeInto(ctx context.Context, txDao *db.DbDao, src, dst *model.Cart) error {
	txCart := s.cartRepo.WithTx(txDao)

	for i := range src.Items {
		it := &src.Items[i]
		existing, err := txCart.GetItem(ctx, dst.CartID, it.ProductID)
		if err != nil && !errors.Is(err, db.ErrCartItemNotFound) {
			return err
		}
		if existing != nil {
			if err := txCart.UpdateItem(ctx, dst.CartID, it.ProductID,
				existing.Quantity+it.Quantity, existing.UnitPrice); err != nil {
				return err
			}
			continue
		}
		if err := txCart.CreateItem(ctx, &model.CartItem{
			CartID:    dst.CartID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}); err != nil {
			return err
		}
	}

	return txCart.DeleteAllItems(ctx, src.CartID)
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (*model.Cart, error) {
	return s.cartRepo.GetCartByID(ctx, cartID)
}

// AddItem 加入商品
// 已存在同商品則數量相加並重新同步單價
// 錯誤:
//   - ErrCartNotOpen: 購物車非OPEN
//   - ErrProductInactive: 商品已下架
//   - db.ErrInsufficientStock: strictStock開啟且數量超過可售
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, qty int) (*model.CartItem, error) {
	if qty < 1 {
		qty = 1
	}

	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !cart.IsOpen() {
		return nil, ErrCartNotOpen
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	item, err := s.cartRepo.GetItem(ctx, cartID, productID)
	if err != nil && !errors.Is(err, db.ErrCartItemNotFound) {
		return nil, err
	}

	newQty := qty
	if item != nil {
		newQty = item.Quantity + qty
	}

	if s.strictStock {
		available, err := s.invRepo.Available(ctx, productID)
		if err != nil {
			return nil, err
		}
		if newQty > available {
			return nil, fmt.Errorf("%w: product %s requested %d available %d",
				db.ErrInsufficientStock, productID, newQty, available)
		}
	}

	if item == nil {
		item = &model.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: product.Price,
		}
		if err := s.cartRepo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	}

	// 單價跟著現價走
	if err := s.cartRepo.UpdateItem(ctx, cartID, productID, newQty, product.Price); err != nil {
		return nil, err
	}
	item.Quantity = newQty
	item.UnitPrice = product.Price
	return item, nil
}

// Increment 項目數量+1
func (s *CartService) Increment(ctx context.Context, cartID, productID string) error {
	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		return err
	}
	if !cart.IsOpen() {
		return ErrCartNotOpen
	}

	item, err := s.cartRepo.GetItem(ctx, cartID, productID)
	if err != nil {
		return err
	}
	return s.cartRepo.UpdateItem(ctx, cartID, productID, item.Quantity+1, item.UnitPrice)
}

// Decrement 項目數量-1，歸零則刪除項目
func (s *CartService) Decrement(ctx context.Context, cartID, productID string) error {
	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		return err
	}
	if !cart.IsOpen() {
		return ErrCartNotOpen
	}

	item, err := s.cartRepo.GetItem(ctx, cartID, productID)
	if err != nil {
		return err
	}
	if item.Quantity <= 1 {
		return s.cartRepo.DeleteItem(ctx, cartID, productID)
	}
	return s.cartRepo.UpdateItem(ctx, cartID, productID, item.Quantity-1, item.UnitPrice)
}

// RemoveItem 移除單一項目，不檢查狀態
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) error {
	return s.cartRepo.DeleteItem(ctx, cartID, productID)
}

// Clear 清空全部項目，不檢查狀態
func (s *CartService) Clear(ctx context.Context, cartID string) error {
	return s.cartRepo.DeleteAllItems(ctx, cartID)
}

// LockCart OPEN -> LOCKED
// 條件更新，兩個併發的鎖定只有一個成功
func (s *CartService) LockCart(ctx context.Context, cartID string) error {
	ok, err := s.cartRepo.TransitionCartStatus(ctx, cartID, model.CartStatusOpen, model.CartStatusLocked)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.cartRepo.GetCartByID(ctx, cartID); err != nil {
			return err
		}
		return ErrCartNotOpen
	}
	return nil
}

// UnlockCart LOCKED -> OPEN，卡在鎖定狀態的購物車救回來用
func (s *CartService) UnlockCart(ctx context.Context, cartID string) error {
	ok, err := s.cartRepo.TransitionCartStatus(ctx, cartID, model.CartStatusLocked, model.CartStatusOpen)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.cartRepo.GetCartByID(ctx, cartID); err != nil {
			return err
		}
		return ErrCartNotLocked
	}
	return nil
}

// ExpireCart 任意狀態 -> EXPIRED並清除項目，冪等
func (s *CartService) ExpireCart(ctx context.Context, cartID string) error {
	return s.dao.ExecTx(ctx, func(txDao *db.DbDao) error {
		txCart := s.cartRepo.WithTx(txDao)
		if err := txCart.DeleteAllItems(ctx, cartID); err != nil {
			return err
		}
		return txCart.UpdateCartStatus(ctx, cartID, model.CartStatusExpired)
	})
}

// ExpireStaleCarts 掃描並過期閒置超過TTL的OPEN購物車
// 排程或懶惰觸發皆可，重跑無害
func (s *CartService) ExpireStaleCarts(ctx context.Context, now time.Time) (int, error) {
	before := now.Add(-s.cartTTL)

	var expired int
	err := s.dao.ExecTx(ctx, func(txDao *db.DbDao) error {
		txCart := s.cartRepo.WithTx(txDao)
		ids, err := txCart.ListStaleOpenCartIDs(ctx, before)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := txCart.DeleteAllItems(ctx, id); err != nil {
				return err
			}
		}
		n, err := txCart.ExpireStaleOpenCarts(ctx, before)
		if err != nil {
			return err
		}
		expired = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		s.logger.Info("expired stale carts", zap.Int("count", expired))
	}
	return expired, nil
}

var _ ICartService = (*CartService)(nil)
