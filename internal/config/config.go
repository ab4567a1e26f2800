package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	viper "github.com/spf13/viper"
)

type Config struct {
	AppEnv      string `mapstructure:"APP_ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	DbName      string        `mapstructure:"POSTGRES_DB"`
	DbHost      string        `mapstructure:"POSTGRES_HOST"`
	DbPort      string        `mapstructure:"POSTGRES_PORT"`
	DbUser      string        `mapstructure:"POSTGRES_USER"`
	DbPas       string        `mapstructure:"POSTGRES_PASSWORD"`
	DbTxTimeout time.Duration `mapstructure:"DB_TX_TIMEOUT"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	AddressCacheTTL time.Duration `mapstructure:"ADDRESS_CACHE_TTL"`

	AddressServiceUrl string        `mapstructure:"ADDRESS_SERVICE_URL"`
	AddressTimeout    time.Duration `mapstructure:"ADDRESS_TIMEOUT"`

	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	OrderCreatedTopic   string        `mapstructure:"ORDER_CREATED_TOPIC"`
	KafkaPublishTimeout time.Duration `mapstructure:"KAFKA_PUBLISH_TIMEOUT"`
	// 空字串表示 log 不送 kafka
	LogKafkaTopic string `mapstructure:"LOG_KAFKA_TOPIC"`

	// capacity 為 0 時不限流
	CheckoutRateCapacity  int     `mapstructure:"CHECKOUT_RATE_CAPACITY"`
	CheckoutRatePerSecond float64 `mapstructure:"CHECKOUT_RATE_PER_SEC"`

	DefaultCurrency string `mapstructure:"DEFAULT_CURRENCY"`
	OtelEndpoint    string `mapstructure:"OTEL_ENDPOINT"`
	MetricsEnabled  bool   `mapstructure:"METRICS_ENABLED"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "release")
	v.SetDefault("SERVICE_NAME", "foodorder")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("POSTGRES_DB", "foodorder")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("DB_TX_TIMEOUT", "5s")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ADDRESS_CACHE_TTL", "10m")

	v.SetDefault("ADDRESS_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("ADDRESS_TIMEOUT", "3s")

	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("ORDER_CREATED_TOPIC", "order.created")
	v.SetDefault("KAFKA_PUBLISH_TIMEOUT", "5s")
	v.SetDefault("LOG_KAFKA_TOPIC", "")

	v.SetDefault("CHECKOUT_RATE_CAPACITY", 5)
	v.SetDefault("CHECKOUT_RATE_PER_SEC", 0.5)

	v.SetDefault("DEFAULT_CURRENCY", "VND")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("METRICS_ENABLED", true)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// 沒有設定檔時只用環境變數與預設值
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

/*
LoadConfig 讀取 .env 設定檔，環境變數優先
單純回傳錯誤  由外部決定要不要Fatal
*/
func LoadConfig(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cf.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cf.DefaultCurrency))
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

func (cf *Config) Validate() error {
	var errs []error
	if cf.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if len(cf.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if cf.OrderCreatedTopic == "" {
		errs = append(errs, errors.New("ORDER_CREATED_TOPIC is required"))
	}
	if cf.DefaultCurrency == "" {
		errs = append(errs, errors.New("DEFAULT_CURRENCY is required"))
	}
	if cf.CheckoutRateCapacity > 0 && cf.CheckoutRatePerSecond <= 0 {
		errs = append(errs, errors.New("CHECKOUT_RATE_PER_SEC must be positive when rate limit is enabled"))
	}
	if cf.DbTxTimeout <= 0 {
		errs = append(errs, errors.New("DB_TX_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (cf *Config) IsDebug() bool {
	return cf.AppEnv == "debug"
}

/*
WatchConfig 設定檔變動時重新讀取並呼叫 onChange
只適合可熱更新的設定 (例如 log level)，連線類設定仍需重啟
*/
func WatchConfig(path string, onChange func(cf *Config, err error)) error {
	if path == "" {
		return errors.New("watch config: path is empty")
	}
	v, err := newViper(path)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := v.ReadInConfig(); err != nil {
			onChange(nil, err)
			return
		}
		onChange(unmarshal(v))
	})
	v.WatchConfig()
	return nil
}
