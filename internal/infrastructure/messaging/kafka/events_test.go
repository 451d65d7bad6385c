package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

var _ featurization.EventPublisher = (*EventPublisher)(nil)

type runnerFunc func(ctx context.Context, job *mgtypes.FeaturizeJob) error

func (f runnerFunc) Handle(ctx context.Context, job *mgtypes.FeaturizeJob) error { return f(ctx, job) }

func envelopeMessage(t *testing.T, eventType string, payload interface{}) *Message {
	t.Helper()
	env, err := NewEventEnvelope(eventType, "test", payload)
	require.NoError(t, err)
	pm, err := env.ToMessage(TopicFeaturizeRequested, nil)
	require.NoError(t, err)
	return &Message{Topic: pm.Topic, Value: pm.Value, Headers: pm.Headers}
}

func TestEventPublisher_Publish(t *testing.T) {
	pub := &mockPublisher{}
	ep := NewEventPublisher(pub, "molgraph-worker")
	ctx := logging.WithRequestID(context.Background(), "req-7")

	result := &mgtypes.FeaturizeJobResult{JobID: "job-42", Status: mgtypes.JobSucceeded, Succeeded: 1}
	require.NoError(t, ep.Publish(ctx, TopicFeaturizeCompleted, EventFeaturizeCompleted, result))

	require.Len(t, pub.published, 1)
	msg := pub.published[0]
	assert.Equal(t, TopicFeaturizeCompleted, msg.Topic)
	assert.Equal(t, "job-42", string(msg.Key))
	assert.Equal(t, "req-7", msg.Headers[HeaderTraceID])

	env, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, "molgraph-worker", env.Source)
	var back mgtypes.FeaturizeJobResult
	require.NoError(t, env.DecodePayload(&back))
	assert.Equal(t, *result, back)
}

func TestEventPublisher_UnkeyedPayload(t *testing.T) {
	pub := &mockPublisher{}
	require.NoError(t, NewEventPublisher(pub, "s").Publish(context.Background(), "t", "e", map[string]int{"n": 1}))
	require.Len(t, pub.published, 1)
	assert.Len(t, pub.published[0].Key, 36)
}

func TestEventPublisher_ProducerError(t *testing.T) {
	err := NewEventPublisher(&mockPublisher{err: assert.AnError}, "s").Publish(context.Background(), "t", "e", 1)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDecodeFeaturizeJob(t *testing.T) {
	maxLength := 2
	job := mgtypes.FeaturizeJob{JobID: "j1", SMILES: []string{"CCO"}, MaxLength: &maxLength}

	got, err := DecodeFeaturizeJob(envelopeMessage(t, EventFeaturizeRequested, job))
	require.NoError(t, err)
	assert.Equal(t, job, *got)

	raw, _ := json.Marshal(job)
	got, err = DecodeFeaturizeJob(&Message{Value: raw})
	require.NoError(t, err)
	assert.Equal(t, job, *got)

	_, err = DecodeFeaturizeJob(envelopeMessage(t, "something.else", job))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = DecodeFeaturizeJob(&Message{Value: []byte("[1,2]")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestFeaturizeJobHandler_PropagatesTrace(t *testing.T) {
	var gotTrace string
	var gotJob *mgtypes.FeaturizeJob
	handler := NewFeaturizeJobHandler(runnerFunc(func(ctx context.Context, job *mgtypes.FeaturizeJob) error {
		gotTrace = logging.RequestIDFromContext(ctx)
		gotJob = job
		return nil
	}), nil)

	msg := envelopeMessage(t, EventFeaturizeRequested, mgtypes.FeaturizeJob{JobID: "j2", SMILES: []string{"CC"}})
	msg.Headers[HeaderTraceID] = "trace-xyz"
	require.NoError(t, handler(context.Background(), msg))
	assert.Equal(t, "trace-xyz", gotTrace)
	assert.Equal(t, "j2", gotJob.JobID)
}

// A request travels consumer -> job handler -> featurization -> completion
// event without a broker.
func TestFeaturizeJobPipeline(t *testing.T) {
	results := &mockPublisher{}
	svc := featurization.NewService(featurization.Config{MaxLength: 2}, nil, logging.NewNopLogger())
	jobs := featurization.NewJobHandler(svc, NewEventPublisher(results, "worker"),
		featurization.JobHandlerConfig{ResultTopic: TopicFeaturizeCompleted}, nil, nil)

	dl := &mockPublisher{}
	c := newTestConsumer(&mockKafkaReader{}, WithDeadLetterPublisher(dl))
	require.NoError(t, c.Subscribe(TopicFeaturizeRequested, NewFeaturizeJobHandler(jobs, nil)))

	ok := envelopeMessage(t, EventFeaturizeRequested, mgtypes.FeaturizeJob{JobID: "good", SMILES: []string{"CCO", "C"}})
	assert.Equal(t, ResultOK, c.dispatch(context.Background(), ok))

	require.Len(t, results.published, 1)
	env, err := MessageToEventEnvelope(&Message{Value: results.published[0].Value})
	require.NoError(t, err)
	assert.Equal(t, EventFeaturizeCompleted, env.EventType)
	var res mgtypes.FeaturizeJobResult
	require.NoError(t, env.DecodePayload(&res))
	assert.Equal(t, mgtypes.JobPartial, res.Status)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, errors.ErrCodeMoleculeTooSmall.String(), res.Items[1].Error.Code)

	bad := envelopeMessage(t, EventFeaturizeRequested, mgtypes.FeaturizeJob{SMILES: []string{"CCO"}})
	assert.Equal(t, ResultDeadLetter, c.dispatch(context.Background(), bad))
	require.Len(t, dl.published, 1)
	assert.Equal(t, errors.ErrCodeValidation.String(), dl.published[0].Headers[HeaderErrorCode])
}

//Personal.AI order the ending
