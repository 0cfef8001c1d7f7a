package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/shopcore/internal/service"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type CommandType string

const (
	// CommandUserLoggedIn 登入事件，觸發購物車合併解析
	CommandUserLoggedIn CommandType = "user_logged_in"
	// CommandCheckout 結帳請求
	CommandCheckout CommandType = "checkout"
)

// ErrUnknownCommand 不認識的命令
var ErrUnknownCommand = errors.New("unknown storefront command")

type UserLoggedInCommand struct {
	SessionKey string `json:"session_key"`
	UserID     int    `json:"user_id"`
}

type CheckoutCommand struct {
	SessionKey string `json:"session_key"`
	CartID     string `json:"cart_id"`
	UserID     int    `json:"user_id"`
}

// StorefrontCommandConsumer 店面命令消費
// command type放在header，key為session key，同一session的命令保序
type StorefrontCommandConsumer struct {
	reader    *kafka.Reader
	carts     service.ICartService
	checkouts service.ICheckoutService
	logger    *zap.Logger
}

func NewStorefrontCommandConsumer(brokers []string, groupID, topic string, carts service.ICartService, checkouts service.ICheckoutService, logger *zap.Logger) *StorefrontCommandConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0, // 手動commit
	})
	return &StorefrontCommandConsumer{
		reader:    reader,
		carts:     carts,
		checkouts: checkouts,
		logger:    logger,
	}
}

func commandType(msg kafka.Message) CommandType {
	for _, h := range msg.Headers {
		if h.Key == "command_type" {
			return CommandType(h.Value)
		}
	}
	return ""
}

func (c *StorefrontCommandConsumer) handle(ctx context.Context, msg kafka.Message) error {
	switch commandType(msg) {
	case CommandUserLoggedIn:
		var cmd UserLoggedInCommand
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, err)
		}
		_, err := c.carts.GetOrCreateActiveCart(ctx, cmd.SessionKey, cmd.UserID)
		return err

	case CommandCheckout:
		var cmd CheckoutCommand
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, err)
		}
		order, err := c.checkouts.Checkout(ctx, cmd.SessionKey, cmd.CartID, cmd.UserID)
		if err != nil {
			return err
		}
		c.logger.Info("checkout command processed",
			zap.String("cart_id", cmd.CartID),
			zap.String("order_number", order.Number))
		return nil

	default:
		return ErrUnknownCommand
	}
}

// Start 阻塞消費直到ctx取消
func (c *StorefrontCommandConsumer) Start(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if err := c.handle(ctx, msg); err != nil {
			switch {
			case errors.Is(err, ErrUnknownCommand),
				errors.Is(err, service.ErrNotAuthenticated),
				errors.Is(err, service.ErrCartNotOpen),
				errors.Is(err, service.ErrCartEmpty),
				errors.Is(err, db.ErrCartNotFound),
				errors.Is(err, db.ErrInsufficientStock):
				// 使用者可見的失敗，不是重試能解決的，記錄後放行offset
				c.logger.Warn("storefront command rejected",
					zap.ByteString("key", msg.Key), zap.Error(err))
			default:
				c.logger.Warn("storefront command failed, will retry",
					zap.ByteString("key", msg.Key), zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *StorefrontCommandConsumer) Close() error {
	return c.reader.Close()
}
