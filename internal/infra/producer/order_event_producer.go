package producer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model/event"
	"github.com/RoyceAzure/lab/foodorder/internal/metrics"
	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/message"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/producer"
	"github.com/rs/zerolog"
)

type IOrderEventProducer interface {
	NotifyOrderCreated(ctx context.Context, order *model.Order)
	Close() error
}

// OrderEventProducer 訂單交易提交後發出 order created 事件
// 以 userID 為 key，同一使用者的事件落在同一分區
// topic: 由producer創建時設置
type OrderEventProducer struct {
	producer producer.Producer
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
	timeout  time.Duration
	topic    string

	wg sync.WaitGroup
}

func NewOrderEventProducer(p producer.Producer, clk clock.Clock, m *metrics.Metrics, logger *zerolog.Logger, topic string, timeout time.Duration) *OrderEventProducer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OrderEventProducer{
		producer: p,
		clock:    clk,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		topic:    topic,
	}
}

/*
NotifyOrderCreated 背景送出事件後立即返回
訂單已經提交，發送失敗只記 log 與 metric，不回傳給呼叫端
使用不會被 request 取消的 context，自己的 timeout 另外控制
*/
func (p *OrderEventProducer) NotifyOrderCreated(ctx context.Context, order *model.Order) {
	if order == nil {
		return
	}
	evt := event.NewOrderCreatedEvent(order, p.clock.Now())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := p.publish(pubCtx, evt); err != nil {
			p.metrics.IncPublishFailure()
			p.logger.Error().Err(err).
				Str("order_id", evt.OrderID).
				Str("topic", p.topic).
				Msg("publish order created event failed")
		}
	}()
}

func (p *OrderEventProducer) publish(ctx context.Context, evt *event.OrderCreatedEvent) error {
	msg, err := p.convertToMessage(evt.UserID, evt)
	if err != nil {
		return err
	}
	return p.producer.Produce(ctx, []message.Message{msg})
}

// Wait 等待所有發送中的事件結束
func (p *OrderEventProducer) Wait() {
	p.wg.Wait()
}

// Close 先等發送中的事件完成，再關閉底層 producer
func (p *OrderEventProducer) Close() error {
	p.wg.Wait()
	return p.producer.Close()
}

func (p *OrderEventProducer) convertToMessage(userID string, evt event.Event) (message.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return message.Message{}, err
	}

	return message.Message{
		Key:   []byte(userID),
		Value: value,
		Headers: []message.Header{
			{
				Key:   constants.EventTypeHeader,
				Value: []byte(evt.Type()),
			},
		},
		Time: p.clock.Now(),
	}, nil
}
