package logger

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/message"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/producer"
)

var ErrKafkaWriterClosed = errors.New("kafka log writer is closed")

const defaultLogBufferSize = 1024

/*
KafkaWriter 將 zerolog 輸出送到 kafka，供集中式 log 收集
Write 只把內容放進 buffer，由背景 goroutine 送出，不會卡住呼叫端
buffer 滿時直接丟棄該筆 log，數量記在 Dropped
*/
type KafkaWriter struct {
	p       producer.Producer
	timeout time.Duration
	logID   atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	receiverCh chan message.Message
	chanMutex  sync.RWMutex
	closed     bool
	isStopped  chan struct{}
}

func NewKafkaWriter(p producer.Producer, timeout time.Duration, bufferSize int) *KafkaWriter {
	if timeout <= 0 {
		timeout = time.Second
	}
	if bufferSize <= 0 {
		bufferSize = defaultLogBufferSize
	}
	kw := &KafkaWriter{
		p:          p,
		timeout:    timeout,
		receiverCh: make(chan message.Message, bufferSize),
		isStopped:  make(chan struct{}),
	}
	go kw.produce()
	return kw
}

func (kw *KafkaWriter) Write(p []byte) (n int, err error) {
	if kw == nil || kw.p == nil {
		return 0, errors.New("kafka log writer is not init")
	}

	// 以流水號當 key 平均分配到各分區
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, kw.logID.Add(1))

	// zerolog 會重用 buffer，需要複製
	value := make([]byte, len(p))
	copy(value, p)

	kw.chanMutex.RLock()
	defer kw.chanMutex.RUnlock()
	if kw.closed {
		return 0, ErrKafkaWriterClosed
	}

	select {
	case kw.receiverCh <- message.Message{Key: key, Value: value}:
	default:
		kw.dropped.Add(1)
	}
	return len(p), nil
}

// 送出失敗無法再寫 log，只累計數量
func (kw *KafkaWriter) produce() {
	defer close(kw.isStopped)
	for msg := range kw.receiverCh {
		ctx, cancel := context.WithTimeout(context.Background(), kw.timeout)
		if err := kw.p.Produce(ctx, []message.Message{msg}); err != nil {
			kw.failed.Add(1)
		}
		cancel()
	}
}

// Dropped buffer 滿而丟棄的筆數
func (kw *KafkaWriter) Dropped() uint64 {
	return kw.dropped.Load()
}

// Failed 送出 kafka 失敗的筆數
func (kw *KafkaWriter) Failed() uint64 {
	return kw.failed.Load()
}

// Close 送完 buffer 內剩餘的 log 再關閉 producer，ctx 到期則放棄等待
func (kw *KafkaWriter) Close(ctx context.Context) error {
	kw.chanMutex.Lock()
	if !kw.closed {
		kw.closed = true
		close(kw.receiverCh)
	}
	kw.chanMutex.Unlock()

	select {
	case <-kw.isStopped:
	case <-ctx.Done():
		return errors.Join(ctx.Err(), kw.p.Close())
	}
	return kw.p.Close()
}
