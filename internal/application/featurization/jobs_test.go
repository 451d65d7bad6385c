package featurization

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

type published struct {
	topic     string
	eventType string
	payload   interface{}
}

type mockEventPublisher struct {
	mu        sync.Mutex
	events    []published
	publishFn func(ctx context.Context, topic, eventType string, payload interface{}) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, topic, eventType, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, published{topic: topic, eventType: eventType, payload: payload})
	return nil
}

type jobMetrics struct {
	statuses []string
}

func (j *jobMetrics) ObserveJob(status string, _ time.Duration) {
	j.statuses = append(j.statuses, status)
}

func TestJobHandler_Handle(t *testing.T) {
	pub := &mockEventPublisher{}
	metrics := &jobMetrics{}
	svc := newTestService(Config{MaxLength: 10, Concurrency: 2}, nil)
	h := NewJobHandler(svc, pub, JobHandlerConfig{ResultTopic: "molgraph.featurize.completed", ChunkSize: 2}, metrics, nil)

	job := &mgtypes.FeaturizeJob{
		JobID:     "job-1",
		SMILES:    []string{"CCO", "C1CC", "CC=O", "C"},
		MaxLength: intPtr(2),
	}
	require.NoError(t, h.Handle(context.Background(), job))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "molgraph.featurize.completed", ev.topic)
	assert.Equal(t, EventFeaturizeCompleted, ev.eventType)

	res, ok := ev.payload.(*mgtypes.FeaturizeJobResult)
	require.True(t, ok)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, mgtypes.JobPartial, res.Status)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Items, 4)

	assert.Equal(t, "CCO", res.Items[0].SMILES)
	assert.Nil(t, res.Items[0].Error)
	require.NotNil(t, res.Items[1].Error)
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES.String(), res.Items[1].Error.Code)
	assert.Nil(t, res.Items[2].Error)
	require.NotNil(t, res.Items[3].Error)
	assert.Equal(t, errors.ErrCodeMoleculeTooSmall.String(), res.Items[3].Error.Code)

	assert.Equal(t, []string{string(mgtypes.JobPartial)}, metrics.statuses)
}

func TestJobHandler_PersistedIDs(t *testing.T) {
	repo := new(MockGraphRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(Config{MaxLength: 2}, repo)
	h := NewJobHandler(svc, &mockEventPublisher{}, JobHandlerConfig{ResultTopic: "t"}, nil, nil)

	res, err := h.Run(context.Background(), &mgtypes.FeaturizeJob{JobID: "j", SMILES: []string{"CCO"}, MaxLength: intPtr(2), Persist: true})
	require.NoError(t, err)
	assert.Equal(t, mgtypes.JobSucceeded, res.Status)
	assert.NotEmpty(t, res.Items[0].GraphID)
}

func TestJobHandler_DefaultMaxLength(t *testing.T) {
	svc := newTestService(Config{MaxLength: 3}, nil)
	h := NewJobHandler(svc, &mockEventPublisher{}, JobHandlerConfig{ResultTopic: "t"}, nil, nil)

	res, err := h.Run(context.Background(), &mgtypes.FeaturizeJob{JobID: "j", SMILES: []string{"CCCC", "CC"}})
	require.NoError(t, err)
	assert.Equal(t, mgtypes.JobPartial, res.Status)
	assert.Nil(t, res.Items[0].Error)
	require.NotNil(t, res.Items[1].Error)
	assert.Equal(t, errors.ErrCodeMoleculeTooSmall.String(), res.Items[1].Error.Code)
}

func TestJobHandler_ExplicitZeroMaxLength(t *testing.T) {
	svc := newTestService(Config{MaxLength: 3}, nil)
	h := NewJobHandler(svc, &mockEventPublisher{}, JobHandlerConfig{ResultTopic: "t"}, nil, nil)

	res, err := h.Run(context.Background(), &mgtypes.FeaturizeJob{JobID: "j", SMILES: []string{"C", "CC"}, MaxLength: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, mgtypes.JobSucceeded, res.Status)
	assert.Equal(t, 2, res.Succeeded)
}

func TestJobHandler_InvalidJob(t *testing.T) {
	pub := &mockEventPublisher{}
	h := NewJobHandler(newTestService(Config{}, nil), pub, JobHandlerConfig{ResultTopic: "t"}, nil, nil)

	err := h.Handle(context.Background(), &mgtypes.FeaturizeJob{SMILES: []string{"C"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = h.Handle(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Empty(t, pub.events)
}

func TestJobHandler_PublishFailure(t *testing.T) {
	pub := &mockEventPublisher{
		publishFn: func(context.Context, string, string, interface{}) error { return assert.AnError },
	}
	metrics := &jobMetrics{}
	h := NewJobHandler(newTestService(Config{}, nil), pub, JobHandlerConfig{ResultTopic: "t"}, metrics, nil)

	err := h.Handle(context.Background(), &mgtypes.FeaturizeJob{JobID: "j", SMILES: []string{"CCO"}, MaxLength: intPtr(2)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessagingError))
	assert.Contains(t, err.Error(), "job_id=j")
	assert.Equal(t, []string{string(mgtypes.JobFailed)}, metrics.statuses)
}

func TestErrorDetail(t *testing.T) {
	d := errorDetail(errors.New(errors.ErrCodeAtomInvalid, "bad atom").WithDetail("node=2"))
	assert.Equal(t, "MOL_003", d.Code)
	assert.Equal(t, "bad atom", d.Message)
	assert.Equal(t, "node=2", d.Detail)

	d = errorDetail(assert.AnError)
	assert.Equal(t, errors.ErrCodeInternal.String(), d.Code)
}

//Personal.AI order the ending
