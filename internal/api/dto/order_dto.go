package dto

import (
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
)

// GroupFailureDTO 單一餐廳訂單寫入失敗，不帶內部錯誤細節
type GroupFailureDTO struct {
	RestaurantID string `json:"restaurant_id"`
	Error        string `json:"error"`
}

// CheckoutResponse 多家餐廳結帳的回應
type CheckoutResponse struct {
	CheckoutID string            `json:"checkout_id"`
	Orders     []*model.Order    `json:"orders"`
	Failures   []GroupFailureDTO `json:"failures,omitempty"`
}

type OrderListResponse struct {
	Orders []model.Order `json:"orders"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func NewGroupFailureDTOs(failures []model.GroupFailure) []GroupFailureDTO {
	if len(failures) == 0 {
		return nil
	}
	out := make([]GroupFailureDTO, 0, len(failures))
	for _, f := range failures {
		out = append(out, GroupFailureDTO{
			RestaurantID: f.RestaurantID,
			Error:        "failed to create order",
		})
	}
	return out
}
