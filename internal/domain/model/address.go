package model

import (
	"strings"
)

// Address 外部地址服務擁有的地址，訂單只保存快照
type Address struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	Street       string `json:"street"`
	Ward         string `json:"ward,omitempty"`
	District     string `json:"district,omitempty"`
	City         string `json:"city,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Normalize 去除前後空白
func (a Address) Normalize() Address {
	a.Street = strings.TrimSpace(a.Street)
	a.Ward = strings.TrimSpace(a.Ward)
	a.District = strings.TrimSpace(a.District)
	a.City = strings.TrimSpace(a.City)
	a.Recipient = strings.TrimSpace(a.Recipient)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Instructions = strings.TrimSpace(a.Instructions)
	return a
}

// FullLine 完整地址字串，空白欄位略過
func (a Address) FullLine() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CallerAuth 呼叫者身分，轉送給地址服務驗證
type CallerAuth struct {
	UserID string
	Token  string
}
