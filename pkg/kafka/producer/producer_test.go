package producer

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/config"
	kafkaerrors "github.com/RoyceAzure/lab/foodorder/pkg/kafka/errors"
	"github.com/RoyceAzure/lab/foodorder/pkg/kafka/message"
	mock_producer "github.com/RoyceAzure/lab/foodorder/pkg/kafka/producer/mock"
)

func newTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Brokers = []string{"localhost:9092"}
	cfg.Topic = "order.created"
	cfg.RetryDelay = time.Millisecond
	cfg.RetryAttempts = 2
	return cfg
}

func testMessages() []message.Message {
	return []message.Message{
		{
			Key:     []byte("user-1"),
			Value:   []byte(`{"order_id":"o-1"}`),
			Topic:   "ignored",
			Headers: []message.Header{{Key: "event_type", Value: []byte("order.created")}},
		},
	}
}

func TestProduce(t *testing.T) {
	testCases := []struct {
		name          string
		setUpWriter   func(writer *mock_producer.MockWriter)
		checkResponse func(t *testing.T, err error)
	}{
		{
			name: "success on first write",
			setUpWriter: func(writer *mock_producer.MockWriter) {
				writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, msgs ...kafka.Message) error {
						require.Len(t, msgs, 1)
						require.Empty(t, msgs[0].Topic)
						require.Equal(t, []byte("user-1"), msgs[0].Key)
						require.Equal(t, "event_type", msgs[0].Headers[0].Key)
						return nil
					}).Times(1)
			},
			checkResponse: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "temporary error is retried",
			setUpWriter: func(writer *mock_producer.MockWriter) {
				gomock.InOrder(
					writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(kafka.RequestTimedOut),
					writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(nil),
				)
			},
			checkResponse: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "retries exhausted",
			setUpWriter: func(writer *mock_producer.MockWriter) {
				writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(kafka.LeaderNotAvailable).Times(3)
			},
			checkResponse: func(t *testing.T, err error) {
				require.Error(t, err)
				require.ErrorIs(t, err, kafka.LeaderNotAvailable)
			},
		},
		{
			name: "fatal error is not retried",
			setUpWriter: func(writer *mock_producer.MockWriter) {
				writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(kafka.TopicAuthorizationFailed).Times(1)
			},
			checkResponse: func(t *testing.T, err error) {
				var kafkaErr *kafkaerrors.KafkaError
				require.ErrorAs(t, err, &kafkaErr)
				require.Equal(t, "Produce", kafkaErr.Operation)
				require.Equal(t, "order.created", kafkaErr.Topic)
				require.ErrorIs(t, err, kafka.TopicAuthorizationFailed)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			writer := mock_producer.NewMockWriter(ctrl)
			tc.setUpWriter(writer)

			p, err := NewWithWriter(writer, newTestConfig())
			require.NoError(t, err)

			err = p.Produce(context.Background(), testMessages())
			tc.checkResponse(t, err)
		})
	}
}

func TestProduceEmptyBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := mock_producer.NewMockWriter(ctrl)
	p, err := NewWithWriter(writer, newTestConfig())
	require.NoError(t, err)

	require.NoError(t, p.Produce(context.Background(), nil))
}

func TestProduceAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := mock_producer.NewMockWriter(ctrl)
	writer.EXPECT().Close().Return(nil).Times(1)

	p, err := NewWithWriter(writer, newTestConfig())
	require.NoError(t, err)

	require.NoError(t, p.Close())
	// 重複關閉不會再呼叫 writer
	require.NoError(t, p.Close())

	err = p.Produce(context.Background(), testMessages())
	require.ErrorIs(t, err, kafkaerrors.ErrProducerClosed)
}

func TestNewWithWriterInvalidConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := NewWithWriter(mock_producer.NewMockWriter(ctrl), &config.Config{})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
