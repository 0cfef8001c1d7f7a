package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownPaymentStatus 不認識的金流狀態
var ErrUnknownPaymentStatus = errors.New("unknown payment status")

// PaymentStatusReport 外部金流回報
// 至少一次送達，同一狀態可能重複收到
type PaymentStatusReport struct {
	OrderID       string              `json:"order_id"`
	Status        model.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id,omitempty"`
	EventID       string              `json:"event_id,omitempty"`
}

type IPaymentService interface {
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	ApplyStatus(ctx context.Context, report PaymentStatusReport) error
}

/*
PaymentService 金流狀態機

狀態回報驅動庫存與訂單的副作用，各副作用恰好執行一次:

	AUTHORIZED: 未預留 -> 逐項Reserve，設reservation_applied
	CAPTURED:   未捕獲 -> 逐項Commit，訂單轉PAID，設capture_applied
	FAILED/CANCELLED/REFUNDED: 已預留且未捕獲 -> 逐項Release

整個套用過程為單一交易，付款列先取排他鎖，
旗標檢查與設定因此不會與另一個回報交錯
*/
type PaymentService struct {
	dao         *db.DbDao
	paymentRepo *db.PaymentRepo
	orderRepo   *db.OrderRepo
	invRepo     *db.InventoryRepo
	logger      *zap.Logger
}

func NewPaymentService(
	dao *db.DbDao,
	paymentRepo *db.PaymentRepo,
	orderRepo *db.OrderRepo,
	invRepo *db.InventoryRepo,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		dao:         dao,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		invRepo:     invRepo,
		logger:      logger,
	}
}

func (s *PaymentService) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	return s.paymentRepo.GetByOrderID(ctx, orderID)
}

// ApplyStatus 套用一筆外部狀態回報，單一交易
func (s *PaymentService) ApplyStatus(ctx context.Context, report PaymentStatusReport) error {
	return s.dao.ExecTx(ctx, func(txDao *db.DbDao) error {
		return s.applyStatusTx(ctx, txDao, report)
	})
}

// createAuthorizedTx 結帳開始時建立AUTHORIZED付款並套用預留，由checkout在其交易內呼叫
func (s *PaymentService) createAuthorizedTx(ctx context.Context, txDao *db.DbDao, order *model.Order, provider string) (*model.Payment, error) {
	payment := &model.Payment{
		PaymentID: uuid.NewString(),
		OrderID:   order.OrderID,
		Provider:  provider,
		Amount:    order.Amount,
		Status:    model.PaymentStatusAuthorized,
	}
	if err := s.paymentRepo.WithTx(txDao).CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.applyStatusTx(ctx, txDao, PaymentStatusReport{
		OrderID: order.OrderID,
		Status:  model.PaymentStatusAuthorized,
	}); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) applyStatusTx(ctx context.Context, txDao *db.DbDao, report PaymentStatusReport) error {
	txPayment := s.paymentRepo.WithTx(txDao)
	txInv := s.invRepo.WithTx(txDao)
	txOrder := s.orderRepo.WithTx(txDao)

	payment, err := txPayment.GetByOrderIDForUpdate(ctx, report.OrderID)
	if err != nil {
		return err
	}

	items, err := txOrder.GetOrderItems(ctx, report.OrderID)
	if err != nil {
		return err
	}

	switch report.Status {
	case model.PaymentStatusAuthorized:
		if payment.ReservationApplied || payment.CaptureApplied {
			// 重複或亂序的授權回報，不動
			return nil
		}
		for i := range items {
			if err := txInv.Reserve(ctx, items[i].ProductID, items[i].Quantity); err != nil {
				return err
			}
		}
		payment.ReservationApplied = true
		payment.Status = model.PaymentStatusAuthorized

	case model.PaymentStatusCaptured:
		if payment.CaptureApplied {
			return nil
		}
		// 沒有預留時Commit會直接扣stock，跳過授權的捕獲一樣成立
		for i := range items {
			if err := txInv.Commit(ctx, items[i].ProductID, items[i].Quantity); err != nil {
				return err
			}
		}
		order, err := txOrder.GetOrderByID(ctx, report.OrderID)
		if err != nil {
			return err
		}
		if order.MarkPaid() {
			if err := txOrder.UpdateOrder(ctx, order); err != nil {
				return err
			}
		}
		now := time.Now()
		payment.CaptureApplied = true
		payment.Status = model.PaymentStatusCaptured
		payment.PaidAt = &now

	case model.PaymentStatusFailed, model.PaymentStatusCancelled, model.PaymentStatusRefunded:
		if payment.ReservationApplied && !payment.CaptureApplied {
			for i := range items {
				if err := txInv.Release(ctx, items[i].ProductID, items[i].Quantity); err != nil {
					return err
				}
			}
			// 釋放後清旗標，同一回報再送一次就過不了guard
			payment.ReservationApplied = false
		}
		payment.Status = report.Status

	default:
		return fmt.Errorf("%w: %s", ErrUnknownPaymentStatus, report.Status)
	}

	if report.TransactionID != "" {
		payment.TransactionID = report.TransactionID
	}

	if err := txPayment.UpdatePayment(ctx, payment); err != nil {
		return err
	}

	s.logger.Info("payment status applied",
		zap.String("order_id", report.OrderID),
		zap.String("status", string(report.Status)),
		zap.Bool("reservation_applied", payment.ReservationApplied),
		zap.Bool("capture_applied", payment.CaptureApplied))
	return nil
}

var _ IPaymentService = (*PaymentService)(nil)
