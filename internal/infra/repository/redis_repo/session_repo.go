package redis_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionCartNotFound session沒有指向任何購物車
var ErrSessionCartNotFound = errors.New("session cart pointer not found")

// ISessionRepository session -> 作用中購物車 指標
// 匿名購物車靠這個指標解析，不用掃表
// 指標可能指向已不存在或非OPEN的購物車，解析端要自行驗證
type ISessionRepository interface {
	GetCartID(ctx context.Context, sessionKey string) (string, error)
	SetCartID(ctx context.Context, sessionKey, cartID string) error
	ClearCartID(ctx context.Context, sessionKey string) error
}

type SessionRepo struct {
	sessionCache *redis.Client
	ttl          time.Duration
}

func NewSessionRepo(sessionCache *redis.Client, ttl time.Duration) *SessionRepo {
	return &SessionRepo{sessionCache: sessionCache, ttl: ttl}
}

func generateSessionCartKey(sessionKey string) string {
	return fmt.Sprintf("session:%s:cart", sessionKey)
}

func (s *SessionRepo) GetCartID(ctx context.Context, sessionKey string) (string, error) {
	cartID, err := s.sessionCache.Get(ctx, generateSessionCartKey(sessionKey)).Result()
	if err == redis.Nil {
		return "", ErrSessionCartNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session cart pointer: %w", err)
	}
	return cartID, nil
}

// SetCartID 指標帶TTL，session閒置過期後指標自然消失
func (s *SessionRepo) SetCartID(ctx context.Context, sessionKey, cartID string) error {
	err := s.sessionCache.Set(ctx, generateSessionCartKey(sessionKey), cartID, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session cart pointer: %w", err)
	}
	return nil
}

func (s *SessionRepo) ClearCartID(ctx context.Context, sessionKey string) error {
	err := s.sessionCache.Del(ctx, generateSessionCartKey(sessionKey)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear session cart pointer: %w", err)
	}
	return nil
}

var _ ISessionRepository = (*SessionRepo)(nil)
