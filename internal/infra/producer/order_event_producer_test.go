package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model/event"
	"github.com/RoyceAzure/lab/foodorder/internal/metrics"
	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu       sync.Mutex
	msgs     []message.Message
	err      error
	closed   bool
	deadline bool
	block    chan struct{}
}

func (f *fakeProducer) Produce(ctx context.Context, msgs []message.Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testOrder() *model.Order {
	return &model.Order{
		ID:           "order-1",
		UserID:       "user-1",
		RestaurantID: "rest-a",
		TotalAmount:  decimal.NewFromInt(145000),
		Currency:     "VND",
	}
}

func TestNotifyOrderCreated(t *testing.T) {
	fp := &fakeProducer{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewOrderEventProducer(fp, clock.NewFixed(now), nil, nil, constants.OrderCreatedTopic, time.Second)

	// request context 已取消也要送出
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.NotifyOrderCreated(ctx, testOrder())
	p.Wait()

	require.Len(t, fp.msgs, 1)
	require.True(t, fp.deadline)
	msg := fp.msgs[0]
	require.Equal(t, []byte("user-1"), msg.Key)
	require.Equal(t, []byte(event.OrderCreatedEventName), msg.HeaderValue(constants.EventTypeHeader))

	var evt event.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	require.Equal(t, "order-1", evt.OrderID)
	require.Equal(t, "order-1", evt.AggregateID)
	require.Equal(t, "user-1", evt.UserID)
	require.Equal(t, "rest-a", evt.RestaurantID)
	require.Equal(t, "VND", evt.Currency)
	require.True(t, evt.TotalAmount.Equal(decimal.NewFromInt(145000)))
	require.Equal(t, event.OrderCreatedEventName, evt.EventType)
	require.NotEmpty(t, evt.EventID)
	require.True(t, now.Equal(evt.CreatedAt))
}

func TestNotifyOrderCreatedFailureIsSwallowed(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	p := NewOrderEventProducer(fp, clock.NewSystem(), m, nil, constants.OrderCreatedTopic, time.Second)

	require.NotPanics(t, func() {
		p.NotifyOrderCreated(context.Background(), testOrder())
		p.NotifyOrderCreated(context.Background(), nil)
	})
	p.Wait()
	require.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailuresTotal))
}

func TestCloseDrainsInFlight(t *testing.T) {
	fp := &fakeProducer{block: make(chan struct{})}
	p := NewOrderEventProducer(fp, clock.NewSystem(), nil, nil, constants.OrderCreatedTopic, time.Second)

	p.NotifyOrderCreated(context.Background(), testOrder())

	done := make(chan error, 1)
	go func() {
		done <- p.Close()
	}()

	select {
	case <-done:
		t.Fatal("close returned before in-flight publish finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(fp.block)
	require.NoError(t, <-done)
	require.True(t, fp.closed)
	require.Len(t, fp.msgs, 1)
}
