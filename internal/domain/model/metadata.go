package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderMetadata 訂單的結構化附加資料，整份存成 json 欄位
type OrderMetadata struct {
	Pricing              PricingBreakdown    `json:"pricing"`
	Payment              PaymentDetails      `json:"payment"`
	DeliveryAddress      *Address            `json:"delivery_address,omitempty"`
	Restaurant           *RestaurantSnapshot `json:"restaurant,omitempty"`
	CheckoutID           string              `json:"checkout_id,omitempty"`
	SiblingRestaurantIDs []string            `json:"sibling_restaurant_ids,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	Timeline             []TimelineEvent     `json:"timeline,omitempty"`
}

// PricingBreakdown Total = Subtotal + ShippingFee - Discount
// ExplicitTotal 表示 Total 直接採用呼叫端提供的金額
type PricingBreakdown struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	ExplicitTotal bool            `json:"explicit_total,omitempty"`
}

type PaymentDetails struct {
	Method        string           `json:"method,omitempty"`
	Status        PaymentStatus    `json:"status,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Extra         map[string]any   `json:"extra,omitempty"`
}

// Merge 逐欄合併，patch 沒帶的欄位保留原值
// status 不在這裡處理，由呼叫端決定優先順序後再寫入
func (p PaymentDetails) Merge(patch PaymentPatch) PaymentDetails {
	if patch.Method != nil {
		p.Method = strings.TrimSpace(*patch.Method)
	}
	if patch.Reference != nil {
		p.Reference = *patch.Reference
	}
	if patch.TransactionID != nil {
		p.TransactionID = *patch.TransactionID
	}
	if patch.PaidAt != nil {
		paidAt := patch.PaidAt.UTC()
		p.PaidAt = &paidAt
	}
	if patch.Amount != nil {
		amount := *patch.Amount
		p.Amount = &amount
	}
	if patch.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
	}
	if len(patch.Metadata) > 0 {
		extra := make(map[string]any, len(p.Extra)+len(patch.Metadata))
		for k, v := range p.Extra {
			extra[k] = v
		}
		for k, v := range patch.Metadata {
			if isStatusKey(k) {
				continue
			}
			extra[k] = v
		}
		if len(extra) > 0 {
			p.Extra = extra
		}
	}
	return p
}

// RestaurantSnapshot 下單當下的餐廳資料
type RestaurantSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type TimelineEventType string

const (
	TimelineEventCreated TimelineEventType = "created"
)

type TimelineEvent struct {
	Type   TimelineEventType `json:"type"`
	Status OrderStatus       `json:"status"`
	At     time.Time         `json:"at"`
	Note   string            `json:"note,omitempty"`
}
