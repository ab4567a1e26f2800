package appcontext

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/api/handler"
	"github.com/RoyceAzure/lab/foodorder/internal/config"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/address"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/producer"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/ratelimit"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/redis_decorator"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/foodorder/internal/logger"
	"github.com/RoyceAzure/lab/foodorder/internal/metrics"
	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/RoyceAzure/lab/foodorder/internal/service"
	"github.com/RoyceAzure/lab/foodorder/internal/telemetry"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/admin"
	kafka_config "github.com/RoyceAzure/lab/foodorder/pkg/kafka/config"
	kafka_producer "github.com/RoyceAzure/lab/foodorder/pkg/kafka/producer"
	"github.com/RoyceAzure/lab/foodorder/pkg/redis_client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type ApplicationContext struct {
	Cf     *config.Config
	Logger *zerolog.Logger
	Clock  clock.Clock

	DbDao         *db.DbDao
	OrderRepo     db.IOrderRepository
	RedisClient   *redis.Client
	OrderProducer kafka_producer.Producer
	OrderNotifier producer.IOrderEventProducer
	AddressLookup service.AddressResolver
	// 未啟用時為 nil
	CheckoutLimiter ratelimit.Limiter
	// LOG_KAFKA_TOPIC 為空時都是 nil
	LogProducer kafka_producer.Producer
	LogWriter   *logger.KafkaWriter

	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	tracerShutdown telemetry.ShutdownFunc

	CheckoutService service.ICheckoutService
	OrderService    service.IOrderService
	PaymentService  service.IPaymentService
}

// NewApplicationContext 依序建立所有依賴，任何一步失敗都會釋放已建立的資源
func NewApplicationContext(ctx context.Context, cf *config.Config) (*ApplicationContext, error) {
	app := &ApplicationContext{
		Cf:    cf,
		Clock: clock.NewSystem(),
	}
	if err := app.Init(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Shutdown(shutdownCtx)
		return nil, err
	}
	return app, nil
}

func (app *ApplicationContext) Init(ctx context.Context) error {
	steps := []func(ctx context.Context) error{
		app.setUpLogger,
		app.setUpTracer,
		app.setUpMetrics,
		app.setUpDb,
		app.setUpRedis,
		app.setUpRateLimiter,
		app.setUpKafka,
		app.setUpAddressResolver,
		app.setUpServices,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// log 送 kafka 時需要先有獨立的 producer
func (app *ApplicationContext) setUpLogger(ctx context.Context) error {
	opts := logger.Options{
		Service: app.Cf.ServiceName,
		Level:   app.Cf.LogLevel,
		Debug:   app.Cf.IsDebug(),
	}
	if app.Cf.LogKafkaTopic != "" {
		cfg := kafka_config.DefaultConfig()
		cfg.Brokers = app.Cf.KafkaBrokers
		cfg.Topic = app.Cf.LogKafkaTopic
		p, err := kafka_producer.New(cfg)
		if err != nil {
			return fmt.Errorf("setup log producer: %w", err)
		}
		app.LogProducer = p
		app.LogWriter = logger.NewKafkaWriter(p, app.Cf.KafkaPublishTimeout, 0)
		opts.Sinks = append(opts.Sinks, app.LogWriter)
	}

	l := logger.New(opts)
	app.Logger = &l
	app.Logger.Info().Str("env", app.Cf.AppEnv).Msg("logger ready")
	return nil
}

func (app *ApplicationContext) setUpTracer(ctx context.Context) error {
	shutdown, err := telemetry.SetupTracer(ctx, app.Cf.ServiceName, app.Cf.AppEnv, app.Cf.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	app.tracerShutdown = shutdown
	return nil
}

func (app *ApplicationContext) setUpMetrics(ctx context.Context) error {
	if !app.Cf.MetricsEnabled {
		return nil
	}
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)
	return nil
}

func (app *ApplicationContext) setUpDb(ctx context.Context) error {
	app.Logger.Info().Msg("Start setup database connection")
	conn, err := db.GetDbConn(db.ConnConfig{
		DBName:          app.Cf.DbName,
		Host:            app.Cf.DbHost,
		Port:            app.Cf.DbPort,
		User:            app.Cf.DbUser,
		Password:        app.Cf.DbPas,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return err
	}
	app.DbDao = db.NewDbDao(conn)
	if err := app.DbDao.InitMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	app.OrderRepo = db.NewOrderRepo(app.DbDao)
	app.Logger.Info().Msg("Finish setup database connection")
	return nil
}

func (app *ApplicationContext) setUpRedis(ctx context.Context) error {
	app.Logger.Info().Msg("Start setup redis client")
	client, err := redis_client.NewRedisClient(ctx, app.Cf.RedisAddr,
		redis_client.WithPassword(app.Cf.RedisPassword),
		redis_client.WithDB(app.Cf.RedisDB),
		redis_client.WithTimeout(time.Second),
	)
	if err != nil {
		return err
	}
	app.RedisClient = client
	app.Logger.Info().Msg("Finish setup redis client")
	return nil
}

func (app *ApplicationContext) setUpRateLimiter(ctx context.Context) error {
	if app.Cf.CheckoutRateCapacity <= 0 {
		return nil
	}
	bucket, err := ratelimit.NewRedisTokenBucket(app.RedisClient, ratelimit.Config{
		Capacity:      app.Cf.CheckoutRateCapacity,
		RatePerSecond: app.Cf.CheckoutRatePerSecond,
	}, app.Clock)
	if err != nil {
		return err
	}
	app.CheckoutLimiter = bucket
	return nil
}

// topic 建立失敗只記 log，broker 可能允許自動建立
func (app *ApplicationContext) setUpKafka(ctx context.Context) error {
	app.Logger.Info().Msg("Start setup kafka producer")
	cfg := kafka_config.DefaultConfig()
	cfg.Brokers = app.Cf.KafkaBrokers
	cfg.Topic = app.Cf.OrderCreatedTopic
	cfg.WriteTimeout = app.Cf.KafkaPublishTimeout

	if kafkaAdmin, err := admin.NewAdmin(cfg.Brokers); err != nil {
		app.Logger.Warn().Err(err).Msg("kafka admin unavailable")
	} else {
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = kafkaAdmin.EnsureTopics(topicCtx, admin.TopicConfig{
			Name:              cfg.Topic,
			Partitions:        cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor,
		})
		cancel()
		if err != nil {
			app.Logger.Warn().Err(err).Str("topic", cfg.Topic).Msg("ensure topic failed")
		}
	}

	p, err := kafka_producer.New(cfg)
	if err != nil {
		return fmt.Errorf("setup order producer: %w", err)
	}
	app.OrderProducer = p
	app.OrderNotifier = producer.NewOrderEventProducer(p, app.Clock, app.Metrics, app.Logger, cfg.Topic, app.Cf.KafkaPublishTimeout)
	app.Logger.Info().Msg("Finish setup kafka producer")
	return nil
}

func (app *ApplicationContext) setUpAddressResolver(ctx context.Context) error {
	httpResolver := address.NewHTTPResolver(app.Cf.AddressServiceUrl, app.Cf.AddressTimeout, nil)
	app.AddressLookup = redis_decorator.NewCacheAsideAddressResolver(
		httpResolver,
		redis_repo.NewAddressRedisRepo(app.RedisClient),
		app.Cf.AddressCacheTTL,
		app.Logger,
	)
	return nil
}

func (app *ApplicationContext) setUpServices(ctx context.Context) error {
	app.CheckoutService = service.NewCheckoutService(
		app.OrderRepo,
		app.AddressLookup,
		app.OrderNotifier,
		app.Clock,
		app.Metrics,
		app.Logger,
		service.CheckoutConfig{
			TxTimeout:       app.Cf.DbTxTimeout,
			DefaultCurrency: app.Cf.DefaultCurrency,
		},
	)
	app.OrderService = service.NewOrderService(app.OrderRepo)
	app.PaymentService = service.NewPaymentService(app.OrderRepo, app.Clock, app.Metrics, app.Logger, app.Cf.DbTxTimeout)
	return nil
}

// MetricsHandler 未啟用 metrics 時回傳 nil
func (app *ApplicationContext) MetricsHandler() http.Handler {
	if app.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
}

func (app *ApplicationContext) HealthChecks() map[string]handler.HealthCheck {
	return map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := app.DbDao.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return app.RedisClient.Ping(ctx).Err()
		},
	}
}

/*
Shutdown 先等背景事件送完再關 kafka，最後關儲存與 tracer
log producer 最後關，前面的關閉過程仍可寫 log
*/
func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		if app.OrderNotifier != nil {
			if err := app.OrderNotifier.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close order producer: %w", err))
			}
		} else if app.OrderProducer != nil {
			if err := app.OrderProducer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close order producer: %w", err))
			}
		}
		if app.RedisClient != nil {
			if err := app.RedisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if app.DbDao != nil {
			if err := app.DbDao.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
		if app.tracerShutdown != nil {
			if err := app.tracerShutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
			}
		}
		if app.Logger != nil {
			app.Logger.Info().Msg("Application shutdown complete")
		}
		// writer 會先送完 buffer 再關 producer
		if app.LogWriter != nil {
			if err := app.LogWriter.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close log writer: %w", err))
			}
		} else if app.LogProducer != nil {
			if err := app.LogProducer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close log producer: %w", err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}
