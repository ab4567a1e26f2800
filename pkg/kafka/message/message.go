package message

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Header 代表 Kafka 消息的標頭，用於事件類型等元數據
type Header struct {
	Key   string
	Value []byte
}

// Message 代表一個 Kafka 消息
// Key 決定分區，相同 Key 的消息保證順序
type Message struct {
	Key     []byte
	Value   []byte
	Topic   string
	Headers []Header
	Time    time.Time
}

// HeaderValue 取得指定 header，不存在回傳 nil
func (m *Message) HeaderValue(key string) []byte {
	for _, h := range m.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return nil
}

// ToKafkaMessage converts our Message to kafka-go Message
func (m *Message) ToKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, len(m.Headers))
	for i, h := range m.Headers {
		headers[i] = kafka.Header{Key: h.Key, Value: h.Value}
	}

	return kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Topic:   m.Topic,
		Headers: headers,
		Time:    m.Time,
	}
}
