package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// mockKafkaReader serves queued messages and then blocks until cancelled.
type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockKafkaReader) commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []*ProducerMessage
	err       error
	closed    bool
}

func (m *mockPublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
	lag     int64
}

func (r *recordingObserver) MessageConsumed(_ string, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingObserver) SetConsumerLag(_ string, lag int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lag = lag
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "molgraph-workers",
		Topics:  []string{TopicFeaturizeRequested},
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			MaxRetryBackoff: 2 * time.Millisecond,
			DeadLetterTopic: TopicDeadLetter,
		},
	}
}

func newTestConsumer(reader ReaderInterface, opts ...ConsumerOption) *Consumer {
	cfg := newTestConsumerConfig()
	applyConsumerDefaults(&cfg)
	c := &Consumer{
		reader:   reader,
		config:   cfg,
		logger:   logging.NewNopLogger(),
		handlers: make(map[string]MessageHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func requestMessage(offset int64, value string) kafka.Message {
	return kafka.Message{
		Topic:         TopicFeaturizeRequested,
		Offset:        offset,
		HighWaterMark: 10,
		Value:         []byte(value),
		Headers:       []kafka.Header{{Key: HeaderTraceID, Value: []byte("trace-1")}},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	cfg := newTestConsumerConfig()
	cfg.Brokers = nil
	assert.True(t, errors.IsCode(ValidateConsumerConfig(cfg), errors.ErrCodeValidation))

	cfg = newTestConsumerConfig()
	cfg.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.RetryConfig.MaxRetries = -1
	assert.Error(t, ValidateConsumerConfig(cfg))
}

func TestConsumer_Subscribe(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{})
	assert.Error(t, c.Subscribe("", func(context.Context, *Message) error { return nil }))
	assert.Error(t, c.Subscribe("t", nil))
	require.NoError(t, c.Subscribe("t", func(context.Context, *Message) error { return nil }))
	c.Unsubscribe("t")
	assert.Empty(t, c.handlers)
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{requestMessage(3, "a"), requestMessage(4, "b")}}
	obs := &recordingObserver{}
	c := newTestConsumer(reader, WithObserver(obs))

	var mu sync.Mutex
	var seen []string
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, func(_ context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Value)+"/"+msg.Headers[HeaderTraceID])
		return nil
	}))

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))
	require.Eventually(t, func() bool { return reader.commits() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"a/trace-1", "b/trace-1"}, seen)
	assert.Equal(t, []string{ResultOK, ResultOK}, obs.results)
	assert.Equal(t, int64(5), obs.lag)
	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Consumed)
	assert.Equal(t, int64(2), stats.Processed)
	assert.True(t, reader.closed)
}

func TestConsumer_RetryThenSucceed(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{})
	calls := 0
	handler := func(context.Context, *Message) error {
		calls++
		if calls < 3 {
			return errors.New(errors.ErrCodeMessagingError, "broker hiccup")
		}
		return nil
	}
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, handler))

	result := c.dispatch(context.Background(), fromKafkaMessage(requestMessage(0, "x")))
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(2), c.Stats().Retried)
}

func TestConsumer_DeadLetterAfterRetries(t *testing.T) {
	dl := &mockPublisher{}
	c := newTestConsumer(&mockKafkaReader{}, WithDeadLetterPublisher(dl))
	calls := 0
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, func(context.Context, *Message) error {
		calls++
		return errors.New(errors.ErrCodeDatabaseError, "db down")
	}))

	result := c.dispatch(context.Background(), fromKafkaMessage(requestMessage(7, "payload")))
	assert.Equal(t, ResultDeadLetter, result)
	assert.Equal(t, 3, calls)

	require.Len(t, dl.published, 1)
	msg := dl.published[0]
	assert.Equal(t, TopicDeadLetter, msg.Topic)
	assert.Equal(t, "payload", string(msg.Value))
	assert.Equal(t, TopicFeaturizeRequested, msg.Headers[HeaderOriginalTopic])
	assert.Equal(t, errors.ErrCodeDatabaseError.String(), msg.Headers[HeaderErrorCode])
	assert.Equal(t, "trace-1", msg.Headers[HeaderTraceID])
	assert.Equal(t, int64(1), c.Stats().DeadLettered)
}

func TestConsumer_NonRetryableSkipsRetries(t *testing.T) {
	dl := &mockPublisher{}
	c := newTestConsumer(&mockKafkaReader{}, WithDeadLetterPublisher(dl))
	calls := 0
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, func(context.Context, *Message) error {
		calls++
		return errors.New(errors.ErrCodeSerialization, "garbage")
	}))

	assert.Equal(t, ResultDeadLetter, c.dispatch(context.Background(), fromKafkaMessage(requestMessage(0, "{"))))
	assert.Equal(t, 1, calls)
	assert.Zero(t, c.Stats().Retried)
}

func TestConsumer_DeadLetterFailureDrops(t *testing.T) {
	dl := &mockPublisher{err: assert.AnError}
	c := newTestConsumer(&mockKafkaReader{}, WithDeadLetterPublisher(dl))
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, func(context.Context, *Message) error {
		return errors.New(errors.ErrCodeValidation, "bad job")
	}))

	assert.Equal(t, ResultDropped, c.dispatch(context.Background(), fromKafkaMessage(requestMessage(0, "x"))))
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestConsumer_UnknownTopicDropped(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "other", Value: []byte("x")}}}
	obs := &recordingObserver{}
	c := newTestConsumer(reader, WithObserver(obs))

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	assert.Equal(t, []string{ResultDropped}, obs.results)
}

func TestConsumer_CloseClosesDeadLetter(t *testing.T) {
	dl := &mockPublisher{}
	c := newTestConsumer(&mockKafkaReader{}, WithDeadLetterPublisher(dl))
	require.NoError(t, c.Close())
	assert.True(t, dl.closed)
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(errors.New(errors.ErrCodeValidation, "x")))
	assert.False(t, retryable(errors.New(errors.ErrCodeSerialization, "x")))
	assert.True(t, retryable(errors.New(errors.ErrCodeMessagingError, "x")))
	assert.True(t, retryable(assert.AnError))
}

//Personal.AI order the ending
