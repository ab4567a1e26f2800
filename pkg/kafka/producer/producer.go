package producer

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/config"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/errors"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/message"
)

//go:generate mockgen -destination=mock/writer.go -package=mock_producer github.com/RoyceAzure/lab/foodorder/pkg/kafka/producer Writer

// Writer kafka.Writer 的抽象，方便測試替換
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer interface defines the methods that a Kafka producer must implement
type Producer interface {
	// Produce sends messages to Kafka
	Produce(ctx context.Context, msgs []message.Message) error
	// Close closes the producer
	Close() error
}

type kafkaProducer struct {
	writer Writer
	cfg    *config.Config
	closed atomic.Bool
}

// New creates a new Kafka producer
func New(cfg *config.Config) (Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     cfg.GetBalancer(),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Async:        false,
		// 重試由 Produce 自行控制
		MaxAttempts: 1,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf("kafka producer error: "+msg, args...)
		}),
		Compression: kafka.Snappy,
	}

	return NewWithWriter(writer, cfg)
}

// NewWithWriter 使用外部提供的 writer
func NewWithWriter(w Writer, cfg *config.Config) (Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &kafkaProducer{writer: w, cfg: cfg}, nil
}

// Produce 同步發送消息，會block到所有消息都寫入或重試耗盡
func (p *kafkaProducer) Produce(ctx context.Context, msgs []message.Message) error {
	if p.closed.Load() {
		return errors.NewKafkaError("Produce", p.cfg.Topic, errors.ErrProducerClosed)
	}
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		km := msg.ToKafkaMessage()
		// writer 已綁定 topic，message 不可再指定
		km.Topic = ""
		kafkaMsgs[i] = km
	}

	var err error
	delay := p.cfg.RetryDelay
	for attempt := 0; attempt <= p.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return errors.NewKafkaError("Produce", p.cfg.Topic, ctx.Err())
		}

		err = p.writer.WriteMessages(ctx, kafkaMsgs...)
		if err == nil {
			return nil
		}
		if !errors.IsTemporaryError(err) || attempt == p.cfg.RetryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.NewKafkaError("Produce", p.cfg.Topic, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return errors.NewKafkaError("Produce", p.cfg.Topic, err)
}

func (p *kafkaProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
