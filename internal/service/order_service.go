package service

import (
	"context"
	"strings"

	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/db"
)

type IOrderService interface {
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)
	GetOrder(ctx context.Context, orderID, userID string) (*model.Order, error)
}

type OrderService struct {
	orderRepo db.IOrderRepository
}

func NewOrderService(orderRepo db.IOrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// ListOrders limit <= 0 使用預設值，超過上限時截斷
func (o *OrderService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}
	limit, offset = normalizePaging(limit, offset)
	return o.orderRepo.ListOrdersByUser(ctx, userID, limit, offset)
}

// GetOrder 不存在或不屬於該使用者時回傳 nil, nil
func (o *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*model.Order, error) {
	orderID = strings.TrimSpace(orderID)
	userID = strings.TrimSpace(userID)
	if orderID == "" {
		return nil, model.NewValidationError("order_id", "is required")
	}
	if userID == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}
	return o.orderRepo.GetOrderForUser(ctx, orderID, userID)
}

func normalizePaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultPagingLimit
	}
	if limit > constants.MaxPagingLimit {
		limit = constants.MaxPagingLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
