package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderMutation 在交易內修改訂單，回傳錯誤時整筆交易回滾
type OrderMutation func(order *model.Order) error

type IOrderRepository interface {
	PersistOrder(ctx context.Context, order *model.Order) (*model.Order, error)
	GetOrderForUser(ctx context.Context, orderID, userID string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)
	UpdateOrderPayment(ctx context.Context, orderID, userID string, mutate OrderMutation) (*model.Order, error)
}

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

/*
PersistOrder 單一交易內依序寫入訂單、明細與配送紀錄
任何一步失敗整筆回滾，錯誤原樣往上拋
成功後回傳的訂單已帶上 Items 與 Delivery，不需要再查一次
*/
func (s *OrderRepo) PersistOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order == nil {
		return nil, errors.New("persist order: order is nil")
	}

	items := order.Items
	delivery := order.Delivery

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先寫訂單本身，明細與配送在之後才參照 order id
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}

		if delivery != nil {
			delivery.OrderID = order.ID
			if err := tx.Create(delivery).Error; err != nil {
				return fmt.Errorf("insert delivery: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	order.Delivery = delivery
	return order, nil
}

// GetOrderForUser 找不到或不屬於該使用者時回傳 nil, nil
func (s *OrderRepo) GetOrderForUser(ctx context.Context, orderID, userID string) (*model.Order, error) {
	var order model.Order
	err := s.preloadAggregate(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &order, nil
}

// ListOrdersByUser 依建立時間新到舊
func (s *OrderRepo) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	err := s.preloadAggregate(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

/*
UpdateOrderPayment 交易內讀取訂單、交給 mutate 修改，再寫回付款狀態與 metadata
postgres 下以 SELECT ... FOR UPDATE 鎖住該筆訂單
找不到或不屬於該使用者時回傳 nil, nil
*/
func (s *OrderRepo) UpdateOrderPayment(ctx context.Context, orderID, userID string, mutate OrderMutation) (*model.Order, error) {
	var updated *model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var order model.Order
		err := query.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load order %s: %w", orderID, err)
		}

		if err := mutate(&order); err != nil {
			return err
		}

		// 只寫回付款相關欄位，其餘欄位建立後不可變
		// UpdateColumns 不會用 gorm 的 NowFunc 蓋掉 mutate 設定的 updated_at
		res := tx.Model(&order).
			Select("payment_status", "metadata", "updated_at").
			Where("user_id = ?", userID).
			UpdateColumns(&order)
		if res.Error != nil {
			return fmt.Errorf("update order %s payment: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var reloaded model.Order
		if err := s.preloadAggregate(tx).Where("id = ?", orderID).First(&reloaded).Error; err != nil {
			return fmt.Errorf("reload order %s: %w", orderID, err)
		}
		updated = &reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *OrderRepo) preloadAggregate(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("Delivery")
}
