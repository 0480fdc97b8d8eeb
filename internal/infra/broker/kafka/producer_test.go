package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageSortsHeaders(t *testing.T) {
	msg := NewMessage("booking.events.v1", "b-1", []byte(`{}`), map[string]string{
		"traceparent":  "00-abc",
		"content-type": "application/cloudevents+json",
	})
	assert.Equal(t, "booking.events.v1", msg.Topic)
	assert.Equal(t, sarama.StringEncoder("b-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "content-type", string(msg.Headers[0].Key))
	assert.Equal(t, "traceparent", string(msg.Headers[1].Key))
}

func TestProducerPublish(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageAndSucceed()

	p := &Producer{sync: mock}
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), nil))
	require.NoError(t, p.Close())
}

func TestProducerPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	p := &Producer{sync: mock}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "acropolis", nil)
	assert.Error(t, err)
}
