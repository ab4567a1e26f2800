package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// TopicConfig 代表主題配置
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// Admin 代表 Kafka 管理工具，只負責 topic 建立
type Admin struct {
	brokers []string
	dialer  *kafka.Dialer
}

func NewAdmin(brokers []string) (*Admin, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	return &Admin{brokers: brokers, dialer: &kafka.Dialer{DualStack: true}}, nil
}

// EnsureTopics 建立不存在的 topic，已存在則略過
func (a *Admin) EnsureTopics(ctx context.Context, topics ...TopicConfig) error {
	if len(topics) == 0 {
		return nil
	}

	conn, err := a.controllerConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		partitions, replicas := t.Partitions, t.ReplicationFactor
		if partitions <= 0 {
			partitions = 1
		}
		if replicas <= 0 {
			replicas = 1
		}
		configs = append(configs, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     partitions,
			ReplicationFactor: replicas,
		})
	}

	if err := conn.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}
	return nil
}

// 嘗試連接每個 broker 直到找到 controller
func (a *Admin) controllerConn(ctx context.Context) (*kafka.Conn, error) {
	var lastErr error
	for _, broker := range a.brokers {
		conn, err := a.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}

		controller, err := conn.Controller()
		conn.Close()
		if err != nil {
			lastErr = err
			continue
		}

		addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
		controllerConn, err := a.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return controllerConn, nil
	}
	return nil, fmt.Errorf("failed to connect to kafka controller: %w", lastErr)
}
