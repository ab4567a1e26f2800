package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending" // 建立後的初始狀態
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
)

const DefaultPaymentMethod = "cod"

var cashPaymentMethods = map[string]struct{}{
	"cod":  {},
	"cash": {},
}

// ParsePaymentStatus 只接受固定列舉值
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled, PaymentStatusUnpaid:
		return status, nil
	default:
		return "", NewValidationError("status", "unsupported payment status %q", s)
	}
}

// IsCashPaymentMethod 貨到付款類付款方式
func IsCashPaymentMethod(method string) bool {
	_, ok := cashPaymentMethods[strings.ToLower(strings.TrimSpace(method))]
	return ok
}

// InitialPaymentStatus 現金類預設 pending，其餘視為上游金流已授權
func InitialPaymentStatus(method string) PaymentStatus {
	if IsCashPaymentMethod(method) {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}

// Order 一次結帳中單一餐廳的訂單
// 建立後只有 status、payment_status、metadata.payment、updated_at 會變動
type Order struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string          `gorm:"not null;type:varchar(64);index" json:"user_id"`
	RestaurantID  string          `gorm:"not null;type:varchar(64);index" json:"restaurant_id"`
	BranchID      *string         `gorm:"type:varchar(64)" json:"branch_id,omitempty"`
	Status        OrderStatus     `gorm:"not null;type:varchar(20)" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"not null;type:varchar(20)" json:"payment_status"`
	TotalAmount   decimal.Decimal `gorm:"not null;type:decimal(14,2)" json:"total_amount"`
	Currency      string          `gorm:"not null;type:varchar(8)" json:"currency"`
	Metadata      OrderMetadata   `gorm:"type:jsonb;serializer:json" json:"metadata"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Delivery      *Delivery       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"delivery,omitempty"`
	BaseModel
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem 建立後不再更新，商品顯示資料以快照保存
type OrderItem struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string          `gorm:"not null;type:varchar(36);index" json:"order_id"`
	Position   int             `gorm:"not null" json:"position"`
	ProductID  string          `gorm:"not null;type:varchar(64)" json:"product_id"`
	VariantID  *string         `gorm:"type:varchar(64)" json:"variant_id,omitempty"`
	Snapshot   ProductSnapshot `gorm:"type:jsonb;serializer:json" json:"snapshot"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"not null;type:decimal(14,2)" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"not null;type:decimal(14,2)" json:"total_price"`
	BaseModel
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ProductSnapshot 下單當下的商品顯示資料
type ProductSnapshot struct {
	Title string `json:"title,omitempty"`
	Image string `json:"image,omitempty"`
	Size  string `json:"size,omitempty"`
}
