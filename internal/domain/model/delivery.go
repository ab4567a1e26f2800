package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	DeliveryStatusPreparing DeliveryStatus = "preparing"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusOnTheWay  DeliveryStatus = "on_the_way"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery 與訂單同一交易建立，之後只由配送追蹤服務更新
type Delivery struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID         string         `gorm:"not null;type:varchar(36);uniqueIndex" json:"order_id"`
	Street          string         `gorm:"not null;type:varchar(255)" json:"street"`
	Ward            string         `gorm:"type:varchar(128)" json:"ward,omitempty"`
	District        string         `gorm:"type:varchar(128)" json:"district,omitempty"`
	City            string         `gorm:"type:varchar(128)" json:"city,omitempty"`
	Recipient       string         `gorm:"type:varchar(128)" json:"recipient,omitempty"`
	Phone           string         `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Instructions    string         `gorm:"type:text" json:"instructions,omitempty"`
	FullAddress     string         `gorm:"type:text" json:"full_address"`
	Status          DeliveryStatus `gorm:"not null;type:varchar(20)" json:"status"`
	ETA             *time.Time     `json:"eta,omitempty"`
	ProofOfDelivery *string        `gorm:"type:text" json:"proof_of_delivery,omitempty"`
	BaseModel
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = DeliveryStatusPreparing
	}
	return nil
}

// NewDeliveryFromAddress 由地址快照建立配送紀錄
func NewDeliveryFromAddress(addr Address) *Delivery {
	return &Delivery{
		Street:       addr.Street,
		Ward:         addr.Ward,
		District:     addr.District,
		City:         addr.City,
		Recipient:    addr.Recipient,
		Phone:        addr.Phone,
		Instructions: addr.Instructions,
		FullAddress:  addr.FullLine(),
		Status:       DeliveryStatusPreparing,
	}
}
