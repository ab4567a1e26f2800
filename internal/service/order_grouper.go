package service

import (
	"fmt"
	"strings"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/shopspring/decimal"
)

// OrderGroup 同一家餐廳的購物車項目，Items 維持原本在購物車中的相對順序
type OrderGroup struct {
	RestaurantID string
	Items        []model.OrderItem
	Subtotal     decimal.Decimal
}

/*
GroupItems 依餐廳拆分購物車
群組順序依餐廳第一次出現的位置決定，回傳的 slice 長度即為訂單數
任何一項驗證失敗都回傳 ValidationError，Field 指向出錯的項目位置(從 0 起算)
*/
func GroupItems(items []model.CartItem, defaultRestaurantID string) ([]OrderGroup, error) {
	if len(items) == 0 {
		return nil, model.NewValidationError("items", "must not be empty")
	}
	defaultRestaurantID = strings.TrimSpace(defaultRestaurantID)

	groups := make([]OrderGroup, 0)
	index := make(map[string]int)

	for i, item := range items {
		orderItem, restaurantID, err := normalizeCartItem(i, item, defaultRestaurantID)
		if err != nil {
			return nil, err
		}

		pos, ok := index[restaurantID]
		if !ok {
			pos = len(groups)
			index[restaurantID] = pos
			groups = append(groups, OrderGroup{RestaurantID: restaurantID, Subtotal: decimal.Zero})
		}
		orderItem.Position = len(groups[pos].Items)
		groups[pos].Items = append(groups[pos].Items, orderItem)
		groups[pos].Subtotal = groups[pos].Subtotal.Add(orderItem.TotalPrice)
	}
	return groups, nil
}

func normalizeCartItem(i int, item model.CartItem, defaultRestaurantID string) (model.OrderItem, string, error) {
	field := func(name string) string {
		return fmt.Sprintf("items[%d].%s", i, name)
	}

	productID := strings.TrimSpace(item.ProductID)
	if productID == "" {
		return model.OrderItem{}, "", model.NewValidationError(field("product_id"), "is required")
	}

	restaurantID := strings.TrimSpace(item.RestaurantID)
	if restaurantID == "" {
		restaurantID = defaultRestaurantID
	}
	if restaurantID == "" {
		return model.OrderItem{}, "", model.NewValidationError(field("restaurant_id"), "cannot be determined")
	}

	if item.Quantity <= 0 {
		return model.OrderItem{}, "", model.NewValidationError(field("quantity"), "must be greater than 0")
	}
	if item.UnitPrice == nil {
		return model.OrderItem{}, "", model.NewValidationError(field("unit_price"), "is required")
	}
	if item.UnitPrice.IsNegative() {
		return model.OrderItem{}, "", model.NewValidationError(field("unit_price"), "must be greater than or equal to 0")
	}

	total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	if item.TotalPrice != nil {
		if item.TotalPrice.IsNegative() {
			return model.OrderItem{}, "", model.NewValidationError(field("total_price"), "must be greater than or equal to 0")
		}
		total = *item.TotalPrice
	}

	return model.OrderItem{
		ProductID: productID,
		VariantID: item.VariantID,
		Snapshot: model.ProductSnapshot{
			Title: item.Title,
			Image: item.Image,
			Size:  item.Size,
		},
		Quantity:   item.Quantity,
		UnitPrice:  *item.UnitPrice,
		TotalPrice: total,
	}, restaurantID, nil
}
