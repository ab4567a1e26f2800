package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutPayload 一次結帳的輸入，購物車可以跨多家餐廳
type CheckoutPayload struct {
	AddressID     string                        `json:"address_id,omitempty"`
	Address       *Address                      `json:"address,omitempty"`
	RestaurantID  string                        `json:"restaurant_id,omitempty"`
	BranchID      *string                       `json:"branch_id,omitempty"`
	Items         []CartItem                    `json:"items"`
	ShippingFee   decimal.Decimal               `json:"shipping_fee"`
	Discount      decimal.Decimal               `json:"discount"`
	TotalAmount   *decimal.Decimal              `json:"total_amount,omitempty"`
	Currency      string                        `json:"currency,omitempty"`
	PaymentMethod string                        `json:"payment_method,omitempty"`
	PaymentStatus string                        `json:"payment_status,omitempty"`
	PaymentRef    string                        `json:"payment_reference,omitempty"`
	Notes         string                        `json:"notes,omitempty"`
	Restaurants   map[string]RestaurantSnapshot `json:"restaurants,omitempty"`
}

// CartItem 購物車中的一行
// RestaurantID 留空時使用 CheckoutPayload.RestaurantID
type CartItem struct {
	ProductID    string           `json:"product_id"`
	RestaurantID string           `json:"restaurant_id,omitempty"`
	VariantID    *string          `json:"variant_id,omitempty"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	TotalPrice   *decimal.Decimal `json:"total_price,omitempty"`
	Title        string           `json:"title,omitempty"`
	Image        string           `json:"image,omitempty"`
	Size         string           `json:"size,omitempty"`
}

// PaymentPatch 金流服務回報的付款結果，所有欄位皆可省略
type PaymentPatch struct {
	Status        *string          `json:"status,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Method        *string          `json:"method,omitempty"`
	Reference     *string          `json:"reference,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// Validate 檢查 status 列舉與金額，回傳 patch 指定的付款狀態
// 明確的 status 優先於 metadata 內的 status，兩者都沒有時回傳空字串
func (p PaymentPatch) Validate() (PaymentStatus, error) {
	if p.Amount != nil && p.Amount.IsNegative() {
		return "", NewValidationError("amount", "must be greater than or equal to 0")
	}

	var nested PaymentStatus
	for k, v := range p.Metadata {
		if !isStatusKey(k) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", NewValidationError("metadata."+k, "must be a string")
		}
		status, err := ParsePaymentStatus(s)
		if err != nil {
			return "", NewValidationError("metadata."+k, "unsupported payment status %q", s)
		}
		// status 優先於 payment_status
		if nested == "" || strings.EqualFold(k, "status") {
			nested = status
		}
	}

	if p.Status != nil {
		status, err := ParsePaymentStatus(*p.Status)
		if err != nil {
			return "", err
		}
		return status, nil
	}
	return nested, nil
}

func isStatusKey(k string) bool {
	switch strings.ToLower(k) {
	case "status", "payment_status":
		return true
	}
	return false
}
