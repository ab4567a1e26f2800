package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/RoyceAzure/lab/foodorder/internal/api/dto"
	"github.com/RoyceAzure/lab/foodorder/internal/api/middleware"
	"github.com/RoyceAzure/lab/foodorder/internal/api/response"
	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type OrderHandler struct {
	checkoutService service.ICheckoutService
	orderService    service.IOrderService
	paymentService  service.IPaymentService
	logger          *zerolog.Logger
}

func NewOrderHandler(
	checkoutService service.ICheckoutService,
	orderService service.IOrderService,
	paymentService service.IPaymentService,
	logger *zerolog.Logger,
) *OrderHandler {
	if checkoutService == nil || orderService == nil || paymentService == nil {
		panic("order handler services cannot be nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		paymentService:  paymentService,
		logger:          logger,
	}
}

// Checkout POST /api/v1/checkout
// 單一餐廳回傳訂單本身，多家餐廳回傳訂單列表；有餐廳寫入失敗時回 207
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerAuth(r.Context())
	if !ok {
		response.ErrorJSON(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var payload model.CheckoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkoutService.CreateCheckout(r.Context(), caller, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if result.Partial() {
		response.SuccessJSON(w, http.StatusMultiStatus, dto.CheckoutResponse{
			CheckoutID: result.CheckoutID,
			Orders:     result.Orders,
			Failures:   dto.NewGroupFailureDTOs(result.Failures),
		})
		return
	}
	if order := result.Single(); order != nil {
		response.SuccessJSON(w, http.StatusCreated, order)
		return
	}
	response.SuccessJSON(w, http.StatusCreated, dto.CheckoutResponse{
		CheckoutID: result.CheckoutID,
		Orders:     result.Orders,
	})
}

// ListOrders GET /api/v1/orders?limit=&offset=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerAuth(r.Context())
	if !ok {
		response.ErrorJSON(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	limit, err := queryInt(r, "limit", constants.DefaultPagingLimit)
	if err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), caller.UserID, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit <= 0 {
		limit = constants.DefaultPagingLimit
	}
	response.SuccessJSON(w, http.StatusOK, dto.OrderListResponse{
		Orders: orders,
		Limit:  min(limit, constants.MaxPagingLimit),
		Offset: max(offset, 0),
	})
}

// GetOrder GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerAuth(r.Context())
	if !ok {
		response.ErrorJSON(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if order == nil {
		h.writeError(w, r, model.ErrOrderNotFound)
		return
	}
	response.SuccessJSON(w, http.StatusOK, order)
}

// UpdatePayment PATCH /api/v1/orders/{id}/payment
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerAuth(r.Context())
	if !ok {
		response.ErrorJSON(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var patch model.PaymentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.paymentService.UpdatePayment(r.Context(), chi.URLParam(r, "id"), caller.UserID, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if order == nil {
		h.writeError(w, r, model.ErrOrderNotFound)
		return
	}
	response.SuccessJSON(w, http.StatusOK, order)
}

// writeError 驗證錯誤回 400，找不到回 404，權限回 403，其餘一律 500 且不回傳細節
func (h *OrderHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorJSON(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		response.ErrorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		response.ErrorJSON(w, http.StatusForbidden, "forbidden")
	default:
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Msg("request failed")
		response.ErrorJSON(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
