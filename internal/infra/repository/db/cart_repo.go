package db

import (
	"context"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrCartNotFound 購物車不存在
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartItemNotFound 購物車項目不存在
	ErrCartItemNotFound = errors.New("cart item not found")
)

type ICartRepository interface {
	CreateCart(ctx context.Context, cart *model.Cart) error
	GetCartByID(ctx context.Context, cartID string) (*model.Cart, error)
	GetOpenCartByUserID(ctx context.Context, userID int) (*model.Cart, error)
	GetOpenCartBySessionKey(ctx context.Context, sessionKey string) (*model.Cart, error)
	UpdateCartStatus(ctx context.Context, cartID string, status model.CartStatus) error
	TransitionCartStatus(ctx context.Context, cartID string, from, to model.CartStatus) (bool, error)
	ClaimCart(ctx context.Context, cartID string, userID int) error
	GetItem(ctx context.Context, cartID, productID string) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error
	DeleteItem(ctx context.Context, cartID, productID string) error
	DeleteAllItems(ctx context.Context, cartID string) error
	ListStaleOpenCartIDs(ctx context.Context, before time.Time) ([]string, error)
	ExpireStaleOpenCarts(ctx context.Context, before time.Time) (int64, error)
}

type CartRepo struct {
	db *DbDao
}

func NewCartRepo(db *DbDao) *CartRepo {
	return &CartRepo{db: db}
}

func (s *CartRepo) WithTx(txDao *DbDao) *CartRepo {
	return &CartRepo{db: txDao}
}

func (s *CartRepo) CreateCart(ctx context.Context, cart *model.Cart) error {
	return s.db.WithContext(ctx).Create(cart).Error
}

func (s *CartRepo) GetCartByID(ctx context.Context, cartID string) (*model.Cart, error) {
	var cart model.Cart
	err := s.db.WithContext(ctx).Preload("Items").First(&cart, "cart_id = ?", cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOpenCartByUserID 取用戶目前的OPEN購物車，不存在回傳ErrCartNotFound
func (s *CartRepo) GetOpenCartByUserID(ctx context.Context, userID int) (*model.Cart, error) {
	var cart model.Cart
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND status = ?", userID, model.CartStatusOpen).
		Order("updated_at DESC").
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartRepo) GetOpenCartBySessionKey(ctx context.Context, sessionKey string) (*model.Cart, error) {
	var cart model.Cart
	err := s.db.WithContext(ctx).Preload("Items").
		Where("session_key = ? AND status = ?", sessionKey, model.CartStatusOpen).
		Order("updated_at DESC").
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartRepo) UpdateCartStatus(ctx context.Context, cartID string, status model.CartStatus) error {
	return s.db.WithContext(ctx).Model(&model.Cart{}).
		Where("cart_id = ?", cartID).
		Update("status", status).Error
}

// TransitionCartStatus 條件狀態轉移 compare-and-swap
// 來源狀態不符(或購物車不存在)時回傳false不動作，
// 兩個併發的轉移只有一個會成功
func (s *CartRepo) TransitionCartStatus(ctx context.Context, cartID string, from, to model.CartStatus) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Cart{}).
		Where("cart_id = ? AND status = ?", cartID, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// ClaimCart 匿名購物車認領給帳號
func (s *CartRepo) ClaimCart(ctx context.Context, cartID string, userID int) error {
	return s.db.WithContext(ctx).Model(&model.Cart{}).
		Where("cart_id = ?", cartID).
		Update("user_id", userID).Error
}

func (s *CartRepo) GetItem(ctx context.Context, cartID, productID string) (*model.CartItem, error) {
	var item model.CartItem
	err := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartRepo) CreateItem(ctx context.Context, item *model.CartItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 數量與單價一起更新，單價在每次add/update時重新同步
func (s *CartRepo) UpdateItem(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"unit_price": unitPrice,
		}).Error
}

func (s *CartRepo) DeleteItem(ctx context.Context, cartID, productID string) error {
	return s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{}).Error
}

func (s *CartRepo) DeleteAllItems(ctx context.Context, cartID string) error {
	return s.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}

// ListStaleOpenCartIDs 閒置超過期限的OPEN購物車
func (s *CartRepo) ListStaleOpenCartIDs(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Cart{}).
		Where("status = ? AND updated_at < ?", model.CartStatusOpen, before).
		Pluck("cart_id", &ids).Error
	return ids, err
}

// ExpireStaleOpenCarts 批次過期閒置購物車，回傳影響筆數
// 時間排程或懶惰觸發都可以重跑，冪等
func (s *CartRepo) ExpireStaleOpenCarts(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Cart{}).
		Where("status = ? AND updated_at < ?", model.CartStatusOpen, before).
		Update("status", model.CartStatusExpired)
	return result.RowsAffected, result.Error
}

var _ ICartRepository = (*CartRepo)(nil)
