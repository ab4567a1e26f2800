package model

import (
	"time"
)

// BaseModel 訂單聚合內各表共用的時間欄位
// 訂單建立後不刪除，所以不使用 soft delete
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Touch 設定建立與更新時間，已設定的建立時間不覆蓋
func (b *BaseModel) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
