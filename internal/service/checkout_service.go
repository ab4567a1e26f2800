package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/foodorder/internal/metrics"
	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/RoyceAzure/lab/foodorder/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AddressResolver 向地址服務查詢並驗證地址
// 找不到回傳 model.ErrAddressNotFound，不屬於呼叫者回傳 model.ErrAddressForbidden
type AddressResolver interface {
	Resolve(ctx context.Context, addressID string, caller model.CallerAuth) (*model.Address, error)
}

// OrderNotifier 訂單交易提交後通知下游，不回傳錯誤，不阻塞呼叫端
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, order *model.Order)
}

type ICheckoutService interface {
	CreateCheckout(ctx context.Context, caller model.CallerAuth, payload model.CheckoutPayload) (*CheckoutResult, error)
}

// CheckoutResult OrderCount 為拆出的訂單數，Orders 只包含成功寫入的訂單
type CheckoutResult struct {
	CheckoutID string
	OrderCount int
	Orders     []*model.Order
	Failures   []model.GroupFailure
}

// Single 只有一家餐廳時回傳該張訂單
func (r *CheckoutResult) Single() *model.Order {
	if r.OrderCount == 1 && len(r.Orders) == 1 {
		return r.Orders[0]
	}
	return nil
}

func (r *CheckoutResult) Partial() bool {
	return len(r.Failures) > 0
}

type CheckoutConfig struct {
	TxTimeout       time.Duration
	DefaultCurrency string
}

type CheckoutService struct {
	orderRepo db.IOrderRepository
	resolver  AddressResolver
	notifier  OrderNotifier
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
	cfg       CheckoutConfig
}

func NewCheckoutService(
	orderRepo db.IOrderRepository,
	resolver AddressResolver,
	notifier OrderNotifier,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zerolog.Logger,
	cfg CheckoutConfig,
) *CheckoutService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "VND"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CheckoutService{
		orderRepo: orderRepo,
		resolver:  resolver,
		notifier:  notifier,
		clock:     clk,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

// checkoutPlan 寫入前已完成所有驗證與金額計算的結帳內容
type checkoutPlan struct {
	checkoutID    string
	currency      string
	method        string
	paymentStatus model.PaymentStatus
	address       model.Address
	groups        []OrderGroup
	shipping      []decimal.Decimal
	discount      []decimal.Decimal
	totals        []decimal.Decimal
	explicitTotal bool
}

/*
CreateCheckout 將一次結帳拆成每家餐廳一張訂單
所有輸入驗證與地址查詢都在寫入前完成，驗證失敗不會有任何寫入
每張訂單各自一個交易，依群組順序寫入；某張失敗不影響已提交的訂單，失敗內容記在 Failures
全部失敗時回傳 *model.CheckoutError
*/
func (s *CheckoutService) CreateCheckout(ctx context.Context, caller model.CallerAuth, payload model.CheckoutPayload) (result *CheckoutResult, err error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "CheckoutService.CreateCheckout")
	start := time.Now()
	defer func() {
		s.metrics.ObserveCheckout(checkoutMetricResult(result, err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := s.logger.With().Str("user_id", caller.UserID).Logger()

	plan, err := s.plan(ctx, caller, payload)
	if err != nil {
		if !errors.Is(err, model.ErrValidation) {
			logger.Warn().Err(err).Msg("checkout rejected")
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.String("checkout.id", plan.checkoutID),
		attribute.Int("checkout.order_count", len(plan.groups)),
	)

	result = &CheckoutResult{
		CheckoutID: plan.checkoutID,
		OrderCount: len(plan.groups),
		Orders:     make([]*model.Order, 0, len(plan.groups)),
	}

	for i := range plan.groups {
		order := s.buildOrder(caller.UserID, payload, plan, i)

		created, perr := s.persist(ctx, order)
		if perr != nil {
			logger.Error().Err(perr).
				Str("checkout_id", plan.checkoutID).
				Str("restaurant_id", plan.groups[i].RestaurantID).
				Msg("persist order failed")
			result.Failures = append(result.Failures, model.GroupFailure{
				RestaurantID: plan.groups[i].RestaurantID,
				Err:          perr,
			})
			continue
		}

		result.Orders = append(result.Orders, created)
		if s.notifier != nil {
			s.notifier.NotifyOrderCreated(ctx, created)
		}
	}

	s.metrics.AddOrdersCreated(len(result.Orders))
	if len(result.Orders) == 0 {
		return nil, &model.CheckoutError{Failures: result.Failures}
	}

	logger.Info().
		Str("checkout_id", plan.checkoutID).
		Int("orders", len(result.Orders)).
		Int("failures", len(result.Failures)).
		Msg("checkout completed")
	return result, nil
}

func (s *CheckoutService) persist(ctx context.Context, order *model.Order) (*model.Order, error) {
	txCtx := ctx
	if s.cfg.TxTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.cfg.TxTimeout)
		defer cancel()
	}
	return s.orderRepo.PersistOrder(txCtx, order)
}

func (s *CheckoutService) plan(ctx context.Context, caller model.CallerAuth, payload model.CheckoutPayload) (*checkoutPlan, error) {
	if strings.TrimSpace(caller.UserID) == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}
	if payload.ShippingFee.IsNegative() {
		return nil, model.NewValidationError("shipping_fee", "must be greater than or equal to 0")
	}
	if payload.Discount.IsNegative() {
		return nil, model.NewValidationError("discount", "must be greater than or equal to 0")
	}
	if !HasCentPrecision(payload.ShippingFee) {
		return nil, model.NewValidationError("shipping_fee", "must not have more than 2 decimal places")
	}
	if !HasCentPrecision(payload.Discount) {
		return nil, model.NewValidationError("discount", "must not have more than 2 decimal places")
	}

	method := strings.ToLower(strings.TrimSpace(payload.PaymentMethod))
	if method == "" {
		method = model.DefaultPaymentMethod
	}
	paymentStatus := model.InitialPaymentStatus(method)
	if strings.TrimSpace(payload.PaymentStatus) != "" {
		status, err := model.ParsePaymentStatus(payload.PaymentStatus)
		if err != nil {
			return nil, model.NewValidationError("payment_status", "unsupported payment status %q", payload.PaymentStatus)
		}
		paymentStatus = status
	}

	groups, err := GroupItems(payload.Items, payload.RestaurantID)
	if err != nil {
		return nil, err
	}

	addressID := strings.TrimSpace(payload.AddressID)
	if addressID == "" {
		if payload.Address == nil {
			return nil, model.NewValidationError("address", "address_id or address is required")
		}
		if strings.TrimSpace(payload.Address.Street) == "" {
			return nil, model.NewValidationError("address.street", "is required")
		}
	}

	shipping, err := AllocateAmount(payload.ShippingFee, len(groups))
	if err != nil {
		return nil, err
	}
	discount, err := AllocateAmount(payload.Discount, len(groups))
	if err != nil {
		return nil, err
	}

	plan := &checkoutPlan{
		checkoutID:    uuid.NewString(),
		currency:      normalizeCurrency(payload.Currency, s.cfg.DefaultCurrency),
		method:        method,
		paymentStatus: paymentStatus,
		groups:        groups,
		shipping:      shipping,
		discount:      discount,
		totals:        make([]decimal.Decimal, len(groups)),
	}

	for i, g := range groups {
		total := g.Subtotal.Add(shipping[i]).Sub(discount[i])
		if total.IsNegative() {
			return nil, model.NewValidationError("discount", "exceeds order total for restaurant %s", g.RestaurantID)
		}
		plan.totals[i] = total
	}
	// 單一餐廳時採用呼叫端提供的總額，多家餐廳一律用計算值
	if len(groups) == 1 && payload.TotalAmount != nil && !payload.TotalAmount.IsNegative() {
		plan.totals[0] = *payload.TotalAmount
		plan.explicitTotal = true
	}

	// 地址查詢放在最後，輸入有誤時不打外部服務
	address, err := s.resolveAddress(ctx, addressID, caller, payload.Address)
	if err != nil {
		return nil, err
	}
	plan.address = address
	return plan, nil
}

func (s *CheckoutService) resolveAddress(ctx context.Context, addressID string, caller model.CallerAuth, inline *model.Address) (model.Address, error) {
	if addressID == "" {
		return inline.Normalize(), nil
	}
	if s.resolver == nil {
		return model.Address{}, errors.New("address resolver is not configured")
	}

	addr, err := s.resolver.Resolve(ctx, addressID, caller)
	if err != nil {
		return model.Address{}, err
	}
	if addr == nil {
		return model.Address{}, model.ErrAddressNotFound
	}
	return addr.Normalize(), nil
}

func (s *CheckoutService) buildOrder(userID string, payload model.CheckoutPayload, plan *checkoutPlan, i int) *model.Order {
	now := s.clock.Now()
	group := plan.groups[i]
	address := plan.address

	metadata := model.OrderMetadata{
		Pricing: model.PricingBreakdown{
			Subtotal:      group.Subtotal,
			ShippingFee:   plan.shipping[i],
			Discount:      plan.discount[i],
			Total:         plan.totals[i],
			ExplicitTotal: plan.explicitTotal,
		},
		Payment: model.PaymentDetails{
			Method:    plan.method,
			Status:    plan.paymentStatus,
			Reference: payload.PaymentRef,
			Currency:  plan.currency,
		},
		DeliveryAddress: &address,
		CheckoutID:      plan.checkoutID,
		Notes:           payload.Notes,
		Timeline: []model.TimelineEvent{
			{Type: model.TimelineEventCreated, Status: model.OrderStatusPending, At: now},
		},
	}
	metadata.SiblingRestaurantIDs = make([]string, 0, len(plan.groups))
	for _, g := range plan.groups {
		metadata.SiblingRestaurantIDs = append(metadata.SiblingRestaurantIDs, g.RestaurantID)
	}
	if snap, ok := payload.Restaurants[group.RestaurantID]; ok {
		snap.ID = group.RestaurantID
		metadata.Restaurant = &snap
	}

	items := make([]model.OrderItem, len(group.Items))
	copy(items, group.Items)
	for j := range items {
		items[j].Touch(now)
	}

	delivery := model.NewDeliveryFromAddress(address)
	delivery.Touch(now)

	order := &model.Order{
		UserID:        userID,
		RestaurantID:  group.RestaurantID,
		BranchID:      branchForGroup(payload, group.RestaurantID, len(plan.groups)),
		Status:        model.OrderStatusPending,
		PaymentStatus: plan.paymentStatus,
		TotalAmount:   plan.totals[i],
		Currency:      plan.currency,
		Metadata:      metadata,
		Items:         items,
		Delivery:      delivery,
	}
	order.Touch(now)
	return order
}

// branch_id 屬於 payload 的 restaurant_id，其他餐廳的訂單不帶分店
// 沒有指定 restaurant_id 時只有單一餐廳結帳才套用
func branchForGroup(payload model.CheckoutPayload, restaurantID string, groupCount int) *string {
	if payload.BranchID == nil {
		return nil
	}
	primary := strings.TrimSpace(payload.RestaurantID)
	if primary == "" {
		if groupCount == 1 {
			return payload.BranchID
		}
		return nil
	}
	if restaurantID != primary {
		return nil
	}
	return payload.BranchID
}

func normalizeCurrency(currency, fallback string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return strings.ToUpper(fallback)
	}
	return currency
}

func checkoutMetricResult(result *CheckoutResult, err error) string {
	switch {
	case err == nil && result != nil && result.Partial():
		return metrics.ResultPartial
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, model.ErrValidation):
		return metrics.ResultInvalid
	case errors.Is(err, model.ErrNotFound):
		return metrics.ResultMissing
	default:
		return metrics.ResultFailed
	}
}
