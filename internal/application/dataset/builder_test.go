package dataset

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memStore) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.NotFound("object not found")
	}
	return data, nil
}

func (m *memStore) ListObjects(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type datasetMetrics struct {
	shards, samples, bytes, skipped int
}

func (d *datasetMetrics) ShardWritten(samples, bytes int) {
	d.shards++
	d.samples += samples
	d.bytes += bytes
}

func (d *datasetMetrics) SamplesSkipped(n int) { d.skipped += n }

var trainingSet = []string{"CCO", "CC=O", "C", "CC#N", "bogus(", "OCC", "C1CC1", "CCCC"}

func TestBuilder_Build(t *testing.T) {
	store := newMemStore()
	metrics := &datasetMetrics{}
	b := NewBuilder(store, BuilderConfig{Prefix: "datasets", ShardSize: 2, Concurrency: 3, MaxLength: 2}, metrics, nil)

	m, err := b.Build(context.Background(), "qm9-mini", trainingSet)
	require.NoError(t, err)

	assert.Equal(t, "qm9-mini", m.Name)
	assert.Equal(t, 8, m.NumInputs)
	assert.Equal(t, 6, m.NumSamples)
	require.Len(t, m.Skipped, 2)
	assert.Equal(t, 2, m.Skipped[0].Index)
	assert.Equal(t, errors.ErrCodeMoleculeTooSmall.String(), m.Skipped[0].Code)
	assert.Equal(t, 4, m.Skipped[1].Index)
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES.String(), m.Skipped[1].Code)

	require.Len(t, m.Shards, 3)
	assert.Equal(t, "datasets/qm9-mini/shard-00000.mgs", m.Shards[0].Key)
	assert.Equal(t, "datasets/qm9-mini/shard-00002.mgs", m.Shards[2].Key)
	for _, s := range m.Shards {
		assert.Equal(t, 2, s.Samples)
		assert.Equal(t, shardContentType, store.types[s.Key])
	}
	assert.Equal(t, manifestContentType, store.types["datasets/qm9-mini/manifest.json"])

	assert.Equal(t, 3, metrics.shards)
	assert.Equal(t, 6, metrics.samples)
	assert.Equal(t, 2, metrics.skipped)

	var stored Manifest
	require.NoError(t, json.Unmarshal(store.objects["datasets/qm9-mini/manifest.json"], &stored))
	assert.Equal(t, m.NumSamples, stored.NumSamples)
}

func TestBuilder_LoadPreservesOrder(t *testing.T) {
	store := newMemStore()
	b := NewBuilder(store, BuilderConfig{Prefix: "datasets", ShardSize: 4, Concurrency: 4, MaxLength: 2}, nil, nil)

	_, err := b.Build(context.Background(), "ordered", trainingSet)
	require.NoError(t, err)

	ds, err := b.Load(context.Background(), "ordered")
	require.NoError(t, err)
	require.Len(t, ds.Shards, 2)

	var got []string
	for _, s := range ds.Samples() {
		got = append(got, s.SMILES)
	}
	assert.Equal(t, []string{"CCO", "CC=O", "CC#N", "OCC", "C1CC1", "CCCC"}, got)
}

func TestBuilder_Padding(t *testing.T) {
	b := NewBuilder(newMemStore(), BuilderConfig{ShardSize: 10, MaxLength: 3, Pad: true}, nil, nil)

	samples, skipped, err := b.Featurize(context.Background(), []string{"C", "CC"})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, samples, 2)
	assert.Equal(t, []float32{6, 0, 0, 0}, samples[0].Nodes)
	assert.Len(t, samples[1].Edges, 16)
}

func TestBuilder_Errors(t *testing.T) {
	store := newMemStore()
	b := NewBuilder(store, BuilderConfig{ShardSize: 2, MaxLength: 2}, nil, nil)
	ctx := context.Background()

	_, err := b.Build(ctx, "../escape", trainingSet)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = b.Build(ctx, "empty", []string{"C", "bogus("})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetEmpty))

	store.putErr = assert.AnError
	_, err = b.Build(ctx, "broken", trainingSet)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))

	_, err = b.Load(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetNotFound))
	assert.True(t, errors.IsNotFound(err))

	neg := NewBuilder(store, BuilderConfig{MaxLength: -1}, nil, nil)
	_, err = neg.Build(ctx, "neg", trainingSet)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMaxLength))
}

func TestBuilder_LoadShardMismatch(t *testing.T) {
	store := newMemStore()
	b := NewBuilder(store, BuilderConfig{ShardSize: 10, MaxLength: 2}, nil, nil)
	ctx := context.Background()

	m, err := b.Build(ctx, "tampered", trainingSet)
	require.NoError(t, err)

	m.Shards[0].Samples = 99
	_, err = b.LoadShard(ctx, m, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeShardCorrupt))

	_, err = b.LoadShard(ctx, m, 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestBuilder_ListAndDelete(t *testing.T) {
	store := newMemStore()
	b := NewBuilder(store, BuilderConfig{Prefix: "datasets", ShardSize: 3, MaxLength: 2}, nil, nil)
	ctx := context.Background()

	for _, name := range []string{"beta", "alpha"} {
		_, err := b.Build(ctx, name, trainingSet)
		require.NoError(t, err)
	}
	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	require.NoError(t, b.Delete(ctx, "alpha"))
	names, err = b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names)

	keys, err := store.ListObjects(ctx, "datasets/alpha/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type fakeLocker struct {
	held     map[string]bool
	acquired []string
	released []string
}

func (f *fakeLocker) Acquire(_ context.Context, name string) (func(context.Context) error, error) {
	if f.held[name] {
		return nil, errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	}
	f.acquired = append(f.acquired, name)
	return func(context.Context) error {
		f.released = append(f.released, name)
		return nil
	}, nil
}

func TestBuilder_Locking(t *testing.T) {
	store := newMemStore()
	locker := &fakeLocker{held: map[string]bool{"dataset:busy": true}}
	b := NewBuilder(store, BuilderConfig{ShardSize: 4, MaxLength: 2}, nil, nil, WithLocker(locker))
	ctx := context.Background()

	_, err := b.Build(ctx, "free", trainingSet)
	require.NoError(t, err)
	require.NoError(t, b.Delete(ctx, "free"))
	assert.Equal(t, []string{"dataset:free", "dataset:free"}, locker.acquired)
	assert.Equal(t, locker.acquired, locker.released)

	_, err = b.Build(ctx, "busy", trainingSet)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	_, err = store.GetObject(ctx, "busy/manifest.json")
	assert.True(t, errors.IsNotFound(err))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("zinc-250k_v2.1"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(".hidden"))
	assert.Error(t, ValidateName("a/b"))
}

//Personal.AI order the ending
