package service

import (
	"context"
	"errors"
	"sync"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/db"
	"github.com/google/uuid"
)

var errPersistFailed = errors.New("persist failed")

// fakeOrderRepo 以 map 模擬訂單表
type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*model.Order
	persisted []string
	failFor   map[string]error
	lastLimit int
	lastOff   int
}

var _ db.IOrderRepository = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*model.Order),
		failFor: make(map[string]error),
	}
}

func (r *fakeOrderRepo) PersistOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[order.RestaurantID]; ok {
		return nil, err
	}
	order.ID = uuid.NewString()
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if order.Delivery != nil {
		order.Delivery.OrderID = order.ID
	}
	cp := *order
	r.orders[order.ID] = &cp
	r.persisted = append(r.persisted, order.ID)
	return order, nil
}

func (r *fakeOrderRepo) GetOrderForUser(ctx context.Context, orderID, userID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit, r.lastOff = limit, offset
	out := make([]model.Order, 0)
	for _, id := range r.persisted {
		if o := r.orders[id]; o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateOrderPayment(ctx context.Context, orderID, userID string, mutate db.OrderMutation) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	cp := *o
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	r.orders[orderID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeResolver struct {
	addresses map[string]model.Address
	err       error
	calls     int
	lastAuth  model.CallerAuth
}

func (f *fakeResolver) Resolve(ctx context.Context, addressID string, caller model.CallerAuth) (*model.Address, error) {
	f.calls++
	f.lastAuth = caller
	if f.err != nil {
		return nil, f.err
	}
	addr, ok := f.addresses[addressID]
	if !ok {
		return nil, nil
	}
	return &addr, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []string
}

func (f *fakeNotifier) NotifyOrderCreated(ctx context.Context, order *model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order.ID)
}
