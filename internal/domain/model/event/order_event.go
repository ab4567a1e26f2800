package event

import (
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent 訂單交易提交後發出，只帶下游需要的最小欄位
type OrderCreatedEvent struct {
	BaseEvent
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	RestaurantID string          `json:"restaurant_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Currency     string          `json:"currency"`
}

func NewOrderCreatedEvent(order *model.Order, now time.Time) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent:    NewBaseEvent(order.ID, OrderCreatedEventName, now),
		OrderID:      order.ID,
		UserID:       order.UserID,
		RestaurantID: order.RestaurantID,
		TotalAmount:  order.TotalAmount,
		Currency:     order.Currency,
	}
}

func (e *OrderCreatedEvent) Type() EventType {
	return OrderCreatedEventName
}
