package kafka

import (
	"context"
	"encoding/json"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

// Publisher is the producer surface the event publisher needs.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// Keyed payloads choose their own partition key.
type Keyed interface {
	EventKey() string
}

// EventPublisher wraps payloads in an EventEnvelope before publishing.
type EventPublisher struct {
	producer Publisher
	source   string
}

func NewEventPublisher(producer Publisher, source string) *EventPublisher {
	return &EventPublisher{producer: producer, source: source}
}

// Publish sends payload to topic as an eventType event.  Payloads
// implementing Keyed are keyed by EventKey, others by the event ID.
func (p *EventPublisher) Publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	env.TraceID = logging.RequestIDFromContext(ctx)

	key := env.EventID
	if k, ok := payload.(Keyed); ok && k.EventKey() != "" {
		key = k.EventKey()
	}
	msg, err := env.ToMessage(topic, []byte(key))
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// JobRunner runs one featurization job.
type JobRunner interface {
	Handle(ctx context.Context, job *mgtypes.FeaturizeJob) error
}

// NewFeaturizeJobHandler adapts runner to the consumer.  Messages may carry
// an EventEnvelope of type EventFeaturizeRequested or a bare FeaturizeJob.
func NewFeaturizeJobHandler(runner JobRunner, logger logging.Logger) MessageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(ctx context.Context, msg *Message) error {
		job, err := DecodeFeaturizeJob(msg)
		if err != nil {
			return err
		}
		if traceID := msg.Headers[HeaderTraceID]; traceID != "" {
			ctx = logging.WithRequestID(ctx, traceID)
		}
		logger.Debug("featurize job received",
			logging.String("job_id", job.JobID),
			logging.Int("molecules", len(job.SMILES)),
			logging.Int64("offset", msg.Offset))
		return runner.Handle(ctx, job)
	}
}

// DecodeFeaturizeJob extracts a FeaturizeJob from msg.
func DecodeFeaturizeJob(msg *Message) (*mgtypes.FeaturizeJob, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return nil, err
	}
	job := &mgtypes.FeaturizeJob{}
	if env.EventType == "" {
		if err := json.Unmarshal(msg.Value, job); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal featurize job")
		}
		return job, nil
	}
	if env.EventType != EventFeaturizeRequested {
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").
			WithDetailf("event_type=%s", env.EventType)
	}
	if err := env.DecodePayload(job); err != nil {
		return nil, err
	}
	return job, nil
}

//Personal.AI order the ending
