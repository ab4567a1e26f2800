package config

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrInvalidConfig = errors.New("invalid kafka config")

// Config 生產者與 topic 管理共用的設定
type Config struct {
	Brokers []string
	Topic   string

	// 生產者配置
	RequiredAcks int
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration

	// 重試配置
	RetryAttempts int
	RetryDelay    time.Duration

	// topic 建立配置
	Partitions        int
	ReplicationFactor int

	Balancer kafka.Balancer
}

// GetBalancer 沒有設定則依 key hash 分區，同一個 user 的事件會落在同一分區
func (c *Config) GetBalancer() kafka.Balancer {
	if c.Balancer != nil {
		return c.Balancer
	}
	return &kafka.Hash{}
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.Join(ErrInvalidConfig, errors.New("brokers is empty"))
	}
	if c.Topic == "" {
		return errors.Join(ErrInvalidConfig, errors.New("topic is empty"))
	}
	if c.RetryAttempts < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("retry attempts must not be negative"))
	}
	return nil
}

// DefaultConfig returns a Config with default settings
func DefaultConfig() *Config {
	return &Config{
		RequiredAcks:      -1, // 等待所有副本確認
		BatchSize:         1,
		BatchTimeout:      10 * time.Millisecond,
		WriteTimeout:      5 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        200 * time.Millisecond,
		Partitions:        3,
		ReplicationFactor: 1,
	}
}
