package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/shopcore/internal/service"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

/*
PaymentStatusConsumer 消費外部金流的狀態回報

金流webhook是至少一次送達，offset只在套用成功後commit，
重複送達由Payment的冪等旗標吸收，不會重複搬動庫存
*/
type PaymentStatusConsumer struct {
	reader   *kafka.Reader
	payments service.IPaymentService
	logger   *zap.Logger
}

func NewPaymentStatusConsumer(brokers []string, groupID, topic string, payments service.IPaymentService, logger *zap.Logger) *PaymentStatusConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0, // 手動commit
	})
	return &PaymentStatusConsumer{
		reader:   reader,
		payments: payments,
		logger:   logger,
	}
}

// Start 阻塞消費直到ctx取消
func (c *PaymentStatusConsumer) Start(ctx context.Context) error {
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

		var report service.PaymentStatusReport
		if err := json.Unmarshal(msg.Value, &report); err != nil {
			// 壞訊息跳過，不卡住partition
			c.logger.Error("malformed payment status report",
				zap.ByteString("value", msg.Value), zap.Error(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := c.payments.ApplyStatus(ctx, report); err != nil {
			if errors.Is(err, db.ErrPaymentNotFound) || errors.Is(err, service.ErrUnknownPaymentStatus) {
				// 不可重試的回報，記錄後commit
				c.logger.Error("dropping unprocessable payment status report",
					zap.String("order_id", report.OrderID),
					zap.String("status", string(report.Status)),
					zap.Error(err))
				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					return err
				}
				continue
			}
			// 暫時性錯誤: 不commit，退避後重讀
			c.logger.Warn("failed to apply payment status, will retry",
				zap.String("order_id", report.OrderID),
				zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *PaymentStatusConsumer) Close() error {
	return c.reader.Close()
}
