package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type OrderRepoTestSuite struct {
	suite.Suite
	db        *gorm.DB
	orderRepo *OrderRepo
	now       time.Time
}

// 每個測試使用獨立的 in-memory sqlite
func (suite *OrderRepoTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(suite.T(), err)

	sqlDB, err := conn.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	dao := NewDbDao(conn)
	require.NoError(suite.T(), dao.InitMigrate())

	suite.db = conn
	suite.orderRepo = NewOrderRepo(dao)
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *OrderRepoTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// 創建測試用的訂單
func (suite *OrderRepoTestSuite) newTestOrder(userID, restaurantID string, createdAt time.Time) *model.Order {
	addr := model.Address{Street: "12 Le Loi", Ward: "Ben Nghe", District: "1", City: "HCMC", Recipient: "An"}
	order := &model.Order{
		UserID:        userID,
		RestaurantID:  restaurantID,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(145000),
		Currency:      "VND",
		Metadata: model.OrderMetadata{
			Pricing: model.PricingBreakdown{
				Subtotal:    decimal.NewFromInt(130000),
				ShippingFee: decimal.NewFromInt(15000),
				Discount:    decimal.Zero,
				Total:       decimal.NewFromInt(145000),
			},
			Payment:         model.PaymentDetails{Method: "cod", Status: model.PaymentStatusPending, Currency: "VND"},
			DeliveryAddress: &addr,
			Timeline: []model.TimelineEvent{
				{Type: model.TimelineEventCreated, Status: model.OrderStatusPending, At: createdAt},
			},
		},
		Items: []model.OrderItem{
			{Position: 0, ProductID: "pho", Quantity: 2, UnitPrice: decimal.NewFromInt(50000), TotalPrice: decimal.NewFromInt(100000),
				Snapshot: model.ProductSnapshot{Title: "Pho bo", Size: "L"}},
			{Position: 1, ProductID: "tra-da", Quantity: 1, UnitPrice: decimal.NewFromInt(30000), TotalPrice: decimal.NewFromInt(30000)},
		},
		Delivery: model.NewDeliveryFromAddress(addr),
	}
	order.Touch(createdAt)
	for i := range order.Items {
		order.Items[i].Touch(createdAt)
	}
	order.Delivery.Touch(createdAt)
	return order
}

func (suite *OrderRepoTestSuite) countRows(table string) int64 {
	var count int64
	require.NoError(suite.T(), suite.db.Table(table).Count(&count).Error)
	return count
}

func (suite *OrderRepoTestSuite) TestPersistOrder() {
	ctx := context.Background()
	order := suite.newTestOrder("user-1", "rest-a", suite.now)

	created, err := suite.orderRepo.PersistOrder(ctx, order)
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), created.ID)
	require.Len(suite.T(), created.Items, 2)
	for _, item := range created.Items {
		require.Equal(suite.T(), created.ID, item.OrderID)
		require.NotEmpty(suite.T(), item.ID)
	}
	require.NotNil(suite.T(), created.Delivery)
	require.Equal(suite.T(), created.ID, created.Delivery.OrderID)

	got, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-1")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	require.True(suite.T(), got.TotalAmount.Equal(decimal.NewFromInt(145000)))
	require.Equal(suite.T(), "pho", got.Items[0].ProductID)
	require.Equal(suite.T(), "tra-da", got.Items[1].ProductID)
	require.Equal(suite.T(), "Pho bo", got.Items[0].Snapshot.Title)
	require.Equal(suite.T(), model.DeliveryStatusPreparing, got.Delivery.Status)
	require.Equal(suite.T(), "12 Le Loi, Ben Nghe, 1, HCMC", got.Delivery.FullAddress)
	require.True(suite.T(), got.Metadata.Pricing.Subtotal.Equal(decimal.NewFromInt(130000)))
	require.Len(suite.T(), got.Metadata.Timeline, 1)
	require.Equal(suite.T(), "12 Le Loi", got.Metadata.DeliveryAddress.Street)
}

func (suite *OrderRepoTestSuite) TestPersistOrderRollbackOnItemFailure() {
	err := suite.db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			tx.AddError(errors.New("item insert failed"))
		}
	})
	require.NoError(suite.T(), err)

	order := suite.newTestOrder("user-1", "rest-a", suite.now)
	created, err := suite.orderRepo.PersistOrder(context.Background(), order)
	require.Error(suite.T(), err)
	require.Nil(suite.T(), created)

	require.Zero(suite.T(), suite.countRows("orders"))
	require.Zero(suite.T(), suite.countRows("order_items"))
	require.Zero(suite.T(), suite.countRows("deliveries"))
}

func (suite *OrderRepoTestSuite) TestPersistOrderWithoutDelivery() {
	order := suite.newTestOrder("user-1", "rest-a", suite.now)
	order.Delivery = nil

	created, err := suite.orderRepo.PersistOrder(context.Background(), order)
	require.NoError(suite.T(), err)
	require.Nil(suite.T(), created.Delivery)
	require.Zero(suite.T(), suite.countRows("deliveries"))
	require.Equal(suite.T(), int64(2), suite.countRows("order_items"))
}

func (suite *OrderRepoTestSuite) TestGetOrderForOtherUser() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	got, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-2")
	require.NoError(suite.T(), err)
	require.Nil(suite.T(), got)

	got, err = suite.orderRepo.GetOrderForUser(ctx, uuid.NewString(), "user-1")
	require.NoError(suite.T(), err)
	require.Nil(suite.T(), got)
}

func (suite *OrderRepoTestSuite) TestGetOrderIsStable() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	first, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-1")
	require.NoError(suite.T(), err)
	second, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-1")
	require.NoError(suite.T(), err)

	a, err := json.Marshal(first)
	require.NoError(suite.T(), err)
	b, err := json.Marshal(second)
	require.NoError(suite.T(), err)
	require.JSONEq(suite.T(), string(a), string(b))
}

func (suite *OrderRepoTestSuite) TestListOrdersByUser() {
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", fmt.Sprintf("rest-%d", i), suite.now.Add(time.Duration(i)*time.Minute)))
		require.NoError(suite.T(), err)
		ids = append(ids, created.ID)
	}
	_, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-2", "rest-x", suite.now))
	require.NoError(suite.T(), err)

	orders, err := suite.orderRepo.ListOrdersByUser(ctx, "user-1", 10, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), orders, 3)
	// 新到舊
	require.Equal(suite.T(), ids[2], orders[0].ID)
	require.Equal(suite.T(), ids[0], orders[2].ID)
	require.Len(suite.T(), orders[0].Items, 2)

	page, err := suite.orderRepo.ListOrdersByUser(ctx, "user-1", 1, 1)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), page, 1)
	require.Equal(suite.T(), ids[1], page[0].ID)

	empty, err := suite.orderRepo.ListOrdersByUser(ctx, "user-3", 10, 0)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), empty)
}

func (suite *OrderRepoTestSuite) TestUpdateOrderPayment() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	updated, err := suite.orderRepo.UpdateOrderPayment(ctx, created.ID, "user-1", func(order *model.Order) error {
		order.PaymentStatus = model.PaymentStatusPaid
		order.Metadata.Payment.Status = model.PaymentStatusPaid
		order.Metadata.Payment.Reference = "ref-1"
		return nil
	})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), updated)
	require.Equal(suite.T(), model.PaymentStatusPaid, updated.PaymentStatus)
	require.Equal(suite.T(), "ref-1", updated.Metadata.Payment.Reference)
	require.Equal(suite.T(), "cod", updated.Metadata.Payment.Method)
	require.Len(suite.T(), updated.Items, 2)
	require.True(suite.T(), updated.TotalAmount.Equal(decimal.NewFromInt(145000)))

	got, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), model.PaymentStatusPaid, got.PaymentStatus)
	require.Len(suite.T(), got.Metadata.Timeline, 1)
}

func (suite *OrderRepoTestSuite) TestUpdateOrderPaymentKeepsCallerTimestamp() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	paidAt := suite.now.Add(90 * time.Minute)
	updated, err := suite.orderRepo.UpdateOrderPayment(ctx, created.ID, "user-1", func(order *model.Order) error {
		order.PaymentStatus = model.PaymentStatusPaid
		order.Metadata.Payment.Status = model.PaymentStatusPaid
		order.Touch(paidAt)
		return nil
	})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), updated)
	require.True(suite.T(), updated.UpdatedAt.Equal(paidAt), "updated_at = %s", updated.UpdatedAt)
	require.True(suite.T(), updated.CreatedAt.Equal(created.CreatedAt))
}

func (suite *OrderRepoTestSuite) TestUpdateOrderPaymentOtherUser() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	called := false
	updated, err := suite.orderRepo.UpdateOrderPayment(ctx, created.ID, "user-2", func(order *model.Order) error {
		called = true
		return nil
	})
	require.NoError(suite.T(), err)
	require.Nil(suite.T(), updated)
	require.False(suite.T(), called)
}

func (suite *OrderRepoTestSuite) TestUpdateOrderPaymentMutationError() {
	ctx := context.Background()
	created, err := suite.orderRepo.PersistOrder(ctx, suite.newTestOrder("user-1", "rest-a", suite.now))
	require.NoError(suite.T(), err)

	mutationErr := errors.New("rejected")
	updated, err := suite.orderRepo.UpdateOrderPayment(ctx, created.ID, "user-1", func(order *model.Order) error {
		order.PaymentStatus = model.PaymentStatusRefunded
		return mutationErr
	})
	require.ErrorIs(suite.T(), err, mutationErr)
	require.Nil(suite.T(), updated)

	got, err := suite.orderRepo.GetOrderForUser(ctx, created.ID, "user-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), model.PaymentStatusPending, got.PaymentStatus)
}

func TestOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepoTestSuite))
}
