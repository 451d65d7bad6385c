package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// Consume results reported to the observer.
const (
	ResultOK         = "ok"
	ResultRetry      = "retry"
	ResultDeadLetter = "dead_letter"
	ResultDropped    = "dropped"
)

// RetryConfig defines retry behaviour.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	AutoOffsetReset   string // "earliest" | "latest"
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxWait           time.Duration
	FetchMaxBytes     int
	SASLUsername      string
	SASLPassword      string
	TLSEnabled        bool
	TLSCAPath         string
	RetryConfig       RetryConfig
}

// ConsumerObserver receives per-message outcomes.
type ConsumerObserver interface {
	MessageConsumed(topic, result string)
	SetConsumerLag(topic string, lag int64)
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
	Lag          int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessagePublisher is where exhausted messages are dead-lettered.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
	Close() error
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithObserver reports message outcomes to o.
func WithObserver(o ConsumerObserver) ConsumerOption {
	return func(c *Consumer) { c.observer = o }
}

// WithDeadLetterPublisher overrides the producer built for the dead letter
// topic.
func WithDeadLetterPublisher(p MessagePublisher) ConsumerOption {
	return func(c *Consumer) { c.deadLetter = p }
}

// Consumer reads a consumer group and dispatches messages by topic.  Failed
// messages are retried with exponential backoff and then dead-lettered;
// validation and serialization failures skip the retries.  Offsets are
// committed after each message is settled.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger

	handlers map[string]MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deadLetter MessagePublisher
	observer   ConsumerObserver

	consumed, processed, failed, retried, deadLettered, lag atomic.Int64
}

// NewConsumer creates a Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	applyConsumerDefaults(&cfg)

	tlsConfig, err := loadTLS(cfg.TLSEnabled, cfg.TLSCAPath)
	if err != nil {
		return nil, err
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, TLS: tlsConfig}
	if cfg.SASLUsername != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.FirstOffset,
		Dialer:            dialer,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	c := &Consumer{
		reader:   kafka.NewReader(readerCfg),
		config:   cfg,
		logger:   logger.Named("kafka-consumer"),
		handlers: make(map[string]MessageHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.deadLetter == nil && cfg.RetryConfig.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{
			Brokers:      cfg.Brokers,
			SASLUsername: cfg.SASLUsername,
			SASLPassword: cfg.SASLPassword,
			TLSEnabled:   cfg.TLSEnabled,
			TLSCAPath:    cfg.TLSCAPath,
		}, logger)
		if err != nil {
			_ = c.reader.Close()
			return nil, err
		}
		c.deadLetter = p
	}
	return c, nil
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 << 20
	}
	if cfg.RetryConfig.RetryBackoff == 0 {
		cfg.RetryConfig.RetryBackoff = time.Second
	}
	if cfg.RetryConfig.MaxRetryBackoff == 0 {
		cfg.RetryConfig.MaxRetryBackoff = 30 * time.Second
	}
}

// Subscribe routes messages of topic to handler.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" || handler == nil {
		return errors.New(errors.ErrCodeValidation, "topic and handler are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
	return nil
}

// Unsubscribe removes the handler of topic.
func (c *Consumer) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
}

// Start launches the consume loop.  It returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Strings("topics", c.config.Topics))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.consumed.Add(1)
		if m.HighWaterMark > 0 {
			lag := m.HighWaterMark - m.Offset - 1
			c.lag.Store(lag)
			if c.observer != nil {
				c.observer.SetConsumerLag(m.Topic, lag)
			}
		}

		result := c.dispatch(ctx, fromKafkaMessage(m))
		if ctx.Err() != nil && result == ResultRetry {
			// Interrupted mid-retry: leave the offset for the next member.
			return
		}
		if c.observer != nil {
			c.observer.MessageConsumed(m.Topic, result)
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("CommitMessages failed",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// dispatch runs the handler of msg.Topic and settles the message.  It
// returns one of the Result constants.
func (c *Consumer) dispatch(ctx context.Context, msg *Message) string {
	c.mu.RLock()
	handler, ok := c.handlers[msg.Topic]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("No handler for topic", logging.String("topic", msg.Topic))
		return ResultDropped
	}

	err := c.process(ctx, msg, handler)
	if err == nil {
		c.processed.Add(1)
		return ResultOK
	}
	if ctx.Err() != nil {
		return ResultRetry
	}
	c.failed.Add(1)
	c.logger.Error("Message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))
	return c.sendToDeadLetter(ctx, msg, err)
}

func (c *Consumer) process(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil || !retryable(err) {
		return err
	}

	backoff := c.config.RetryConfig.RetryBackoff
	for i := 0; i < c.config.RetryConfig.MaxRetries; i++ {
		c.retried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err = handler(ctx, msg); err == nil || !retryable(err) {
			return err
		}
		backoff *= 2
		if backoff > c.config.RetryConfig.MaxRetryBackoff {
			backoff = c.config.RetryConfig.MaxRetryBackoff
		}
	}
	return err
}

// retryable reports whether a handler failure may succeed on redelivery.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeSerialization, errors.ErrCodeBadRequest:
		return false
	}
	return true
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, cause error) string {
	topic := c.config.RetryConfig.DeadLetterTopic
	if c.deadLetter == nil || topic == "" {
		return ResultDropped
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorCode] = errors.GetCode(cause).String()
	headers[HeaderErrorMessage] = cause.Error()

	dl := &ProducerMessage{Topic: topic, Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("Failed to send to dead letter topic",
			logging.String("topic", topic),
			logging.Err(err))
		return ResultDropped
	}
	c.deadLettered.Add(1)
	return ResultDeadLetter
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:     c.consumed.Load(),
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
		Lag:          c.lag.Load(),
	}
}

// Close stops the loop and releases the reader and the dead letter producer.
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.running.Store(false)

	var firstErr error
	if c.reader != nil {
		firstErr = c.reader.Close()
	}
	if c.deadLetter != nil {
		if err := c.deadLetter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return firstErr
}

// ValidateConsumerConfig checks the static consumer configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.Validation("brokers", "at least one broker is required")
	}
	if cfg.GroupID == "" {
		return errors.Validation("group_id", "consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return errors.Validation("topics", "at least one topic is required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.Validation("auto_offset_reset", "must be earliest or latest").
			WithDetailf("value=%s", cfg.AutoOffsetReset)
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.Validation("max_retries", "must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
