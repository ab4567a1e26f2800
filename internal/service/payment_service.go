package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/foodorder/internal/metrics"
	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/RoyceAzure/lab/foodorder/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type IPaymentService interface {
	UpdatePayment(ctx context.Context, orderID, userID string, patch model.PaymentPatch) (*model.Order, error)
}

type PaymentService struct {
	orderRepo db.IOrderRepository
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
	txTimeout time.Duration
}

func NewPaymentService(orderRepo db.IOrderRepository, clk clock.Clock, m *metrics.Metrics, logger *zerolog.Logger, txTimeout time.Duration) *PaymentService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PaymentService{
		orderRepo: orderRepo,
		clock:     clk,
		metrics:   m,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

/*
UpdatePayment 將金流服務回報的結果合併進訂單
metadata.payment 逐欄合併，沒帶的欄位保留
付款狀態優先順序: patch.status > patch.metadata 內的 status > 原 metadata.payment.status > 原訂單 payment_status
訂單不存在或不屬於該使用者時回傳 nil, nil
*/
func (s *PaymentService) UpdatePayment(ctx context.Context, orderID, userID string, patch model.PaymentPatch) (order *model.Order, err error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "PaymentService.UpdatePayment")
	span.SetAttributes(attribute.String("order.id", orderID))
	defer func() {
		s.metrics.IncPaymentUpdate(paymentMetricResult(order, err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	orderID = strings.TrimSpace(orderID)
	userID = strings.TrimSpace(userID)
	if orderID == "" {
		return nil, model.NewValidationError("order_id", "is required")
	}
	if userID == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}

	patchStatus, err := patch.Validate()
	if err != nil {
		return nil, err
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	now := s.clock.Now()
	order, err = s.orderRepo.UpdateOrderPayment(ctx, orderID, userID, func(o *model.Order) error {
		status := resolvePaymentStatus(patchStatus, o.Metadata.Payment.Status, o.PaymentStatus)
		payment := o.Metadata.Payment.Merge(patch)
		payment.Status = status

		o.Metadata.Payment = payment
		o.PaymentStatus = status
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Str("user_id", userID).Msg("update payment failed")
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("payment updated")
	return order, nil
}

// resolvePaymentStatus 依序取第一個非空值，不會把已知狀態清掉
func resolvePaymentStatus(candidates ...model.PaymentStatus) model.PaymentStatus {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func paymentMetricResult(order *model.Order, err error) string {
	switch {
	case err == nil && order == nil:
		return metrics.ResultMissing
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, model.ErrValidation):
		return metrics.ResultInvalid
	default:
		return metrics.ResultFailed
	}
}
