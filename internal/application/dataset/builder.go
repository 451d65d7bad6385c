package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// ShardStore is the object storage the builder writes to.  GetObject must
// return an error satisfying errors.IsNotFound for missing keys.
type ShardStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Locker serialises builds of the same dataset across processes.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// Metrics receives dataset observations.
type Metrics interface {
	ShardWritten(samples, bytes int)
	SamplesSkipped(n int)
}

const (
	manifestName        = "manifest.json"
	shardContentType    = "application/x-molgraph-shard"
	manifestContentType = "application/json"
)

var datasetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// BuilderConfig configures dataset building.
type BuilderConfig struct {
	Prefix      string
	ShardSize   int
	Concurrency int
	MaxLength   int
	Pad         bool
}

// ShardInfo describes one stored shard.
type ShardInfo struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Samples int    `json:"samples"`
	Bytes   int    `json:"bytes"`
}

// SkippedMolecule is an input the featurizer rejected.
type SkippedMolecule struct {
	Index  int    `json:"index"`
	SMILES string `json:"smiles"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Manifest describes a built dataset.
type Manifest struct {
	Name         string            `json:"name"`
	ShardVersion int               `json:"shard_version"`
	MaxLength    int               `json:"max_length"`
	Padded       bool              `json:"padded"`
	ShardSize    int               `json:"shard_size"`
	NumInputs    int               `json:"num_inputs"`
	NumSamples   int               `json:"num_samples"`
	Shards       []ShardInfo       `json:"shards"`
	Skipped      []SkippedMolecule `json:"skipped,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Dataset is a loaded manifest and its shards.
type Dataset struct {
	Manifest *Manifest
	Shards   []*Shard
}

// Samples returns all samples in shard order.
func (d *Dataset) Samples() []Sample {
	out := make([]Sample, 0, d.Manifest.NumSamples)
	for _, s := range d.Shards {
		out = append(out, s.Samples...)
	}
	return out
}

// Builder featurizes molecule collections into sharded datasets.
type Builder struct {
	store   ShardStore
	cfg     BuilderConfig
	metrics Metrics
	locker  Locker
	logger  logging.Logger
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithLocker makes Build and Delete hold a per-dataset lock.
func WithLocker(l Locker) BuilderOption {
	return func(b *Builder) { b.locker = l }
}

// NewBuilder creates a Builder.  metrics may be nil.
func NewBuilder(store ShardStore, cfg BuilderConfig, metrics Metrics, logger logging.Logger, opts ...BuilderOption) *Builder {
	if cfg.ShardSize <= 0 {
		cfg.ShardSize = 4096
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := &Builder{store: store, cfg: cfg, metrics: metrics, logger: logger.Named("dataset")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) lock(ctx context.Context, name string) (func(), error) {
	if b.locker == nil {
		return func() {}, nil
	}
	release, err := b.locker.Acquire(ctx, "dataset:"+name)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "dataset is locked by another build").
			WithDetailf("dataset=%s", name)
	}
	return func() {
		if err := release(context.Background()); err != nil {
			b.logger.Warn("failed to release dataset lock", logging.String("dataset", name), logging.Err(err))
		}
	}, nil
}

// ValidateName checks a dataset name is safe to use as an object key segment.
func ValidateName(name string) error {
	if !datasetNamePattern.MatchString(name) {
		return errors.Validation("name", "dataset name must match [A-Za-z0-9][A-Za-z0-9._-]*").
			WithDetailf("name=%q", name)
	}
	return nil
}

func (b *Builder) datasetPrefix(name string) string {
	return path.Join(b.cfg.Prefix, name) + "/"
}

func (b *Builder) manifestKey(name string) string {
	return path.Join(b.cfg.Prefix, name, manifestName)
}

func (b *Builder) shardKey(name string, index int) string {
	return path.Join(b.cfg.Prefix, name, fmt.Sprintf("shard-%05d.mgs", index))
}

// Featurize encodes smiles concurrently.  samples keeps input order with
// rejected molecules removed; skipped lists the rejections by input index.
func (b *Builder) Featurize(ctx context.Context, smiles []string) (samples []Sample, skipped []SkippedMolecule, err error) {
	results := make([]*Sample, len(smiles))
	var mu sync.Mutex

	var opts []molgraph.FeaturizeOption
	if b.cfg.Pad {
		opts = append(opts, molgraph.WithPadding())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i, s := range smiles {
		i, s := i, strings.TrimSpace(s)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			enc, err := molgraph.FeaturizeSMILES(s, b.cfg.MaxLength, opts...)
			if err != nil {
				mu.Lock()
				skipped = append(skipped, SkippedMolecule{
					Index:  i,
					SMILES: s,
					Code:   errors.GetCode(err).String(),
					Reason: err.Error(),
				})
				mu.Unlock()
				return nil
			}
			smp := NewSample(s, enc)
			results[i] = &smp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeTimeout, "dataset featurization interrupted")
	}

	sort.Slice(skipped, func(a, c int) bool { return skipped[a].Index < skipped[c].Index })
	samples = make([]Sample, 0, len(smiles)-len(skipped))
	for _, r := range results {
		if r != nil {
			samples = append(samples, *r)
		}
	}
	return samples, skipped, nil
}

// Build featurizes smiles, writes the shards and then the manifest.  The
// manifest is written last so a dataset is visible only once complete.
func (b *Builder) Build(ctx context.Context, name string, smiles []string) (*Manifest, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if b.cfg.MaxLength < 0 {
		return nil, errors.New(errors.ErrCodeInvalidMaxLength, "max length must not be negative").
			WithDetailf("max_length=%d", b.cfg.MaxLength)
	}
	unlock, err := b.lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()
	start := time.Now()

	samples, skipped, err := b.Featurize(ctx, smiles)
	if err != nil {
		return nil, err
	}
	if b.metrics != nil && len(skipped) > 0 {
		b.metrics.SamplesSkipped(len(skipped))
	}
	if len(samples) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmpty, "no molecule could be featurized").
			WithDetailf("inputs=%d skipped=%d", len(smiles), len(skipped))
	}

	m := &Manifest{
		Name:         name,
		ShardVersion: ShardVersion,
		MaxLength:    b.cfg.MaxLength,
		Padded:       b.cfg.Pad,
		ShardSize:    b.cfg.ShardSize,
		NumInputs:    len(smiles),
		NumSamples:   len(samples),
		Skipped:      skipped,
		CreatedAt:    time.Now().UTC(),
	}

	for idx, lo := 0, 0; lo < len(samples); idx, lo = idx+1, lo+b.cfg.ShardSize {
		hi := lo + b.cfg.ShardSize
		if hi > len(samples) {
			hi = len(samples)
		}
		info, err := b.writeShard(ctx, &Shard{
			Version:   ShardVersion,
			Dataset:   name,
			Index:     idx,
			MaxLength: b.cfg.MaxLength,
			Samples:   samples[lo:hi],
		})
		if err != nil {
			return nil, err
		}
		m.Shards = append(m.Shards, *info)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal manifest")
	}
	if err := b.store.PutObject(ctx, b.manifestKey(name), data, manifestContentType); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to write manifest").
			WithDetailf("dataset=%s", name)
	}

	b.logger.Info("dataset built",
		logging.String("dataset", name),
		logging.Int("inputs", len(smiles)),
		logging.Int("samples", len(samples)),
		logging.Int("skipped", len(skipped)),
		logging.Int("shards", len(m.Shards)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

func (b *Builder) writeShard(ctx context.Context, s *Shard) (*ShardInfo, error) {
	data, err := EncodeShard(s)
	if err != nil {
		return nil, err
	}
	key := b.shardKey(s.Dataset, s.Index)
	if err := b.store.PutObject(ctx, key, data, shardContentType); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to write shard").
			WithDetailf("key=%s", key)
	}
	if b.metrics != nil {
		b.metrics.ShardWritten(len(s.Samples), len(data))
	}
	b.logger.Debug("shard written",
		logging.String("key", key),
		logging.Int("samples", len(s.Samples)),
		logging.Int("bytes", len(data)),
	)
	return &ShardInfo{Index: s.Index, Key: key, Samples: len(s.Samples), Bytes: len(data)}, nil
}

// LoadManifest reads the manifest of name.
func (b *Builder) LoadManifest(ctx context.Context, name string) (*Manifest, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := b.store.GetObject(ctx, b.manifestKey(name))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.ErrCodeDatasetNotFound, "dataset not found").
				WithDetailf("dataset=%s", name)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal manifest").
			WithDetailf("dataset=%s", name)
	}
	return &m, nil
}

// LoadShard reads and checks one shard listed in m.
func (b *Builder) LoadShard(ctx context.Context, m *Manifest, index int) (*Shard, error) {
	if index < 0 || index >= len(m.Shards) {
		return nil, errors.New(errors.ErrCodeNotFound, "shard index out of range").
			WithDetailf("index=%d shards=%d", index, len(m.Shards))
	}
	info := m.Shards[index]
	data, err := b.store.GetObject(ctx, info.Key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read shard").
			WithDetailf("key=%s", info.Key)
	}
	s, err := DecodeShard(data)
	if err != nil {
		return nil, err
	}
	if s.MaxLength != m.MaxLength || len(s.Samples) != info.Samples {
		return nil, errors.New(errors.ErrCodeShardCorrupt, "shard disagrees with manifest").
			WithDetailf("key=%s max_length=%d samples=%d", info.Key, s.MaxLength, len(s.Samples))
	}
	return s, nil
}

// Load reads the manifest and every shard of name.
func (b *Builder) Load(ctx context.Context, name string) (*Dataset, error) {
	m, err := b.LoadManifest(ctx, name)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Manifest: m, Shards: make([]*Shard, len(m.Shards))}
	for i := range m.Shards {
		s, err := b.LoadShard(ctx, m, i)
		if err != nil {
			return nil, err
		}
		ds.Shards[i] = s
	}
	return ds, nil
}

// List returns the names of all datasets with a manifest.
func (b *Builder) List(ctx context.Context) ([]string, error) {
	prefix := ""
	if b.cfg.Prefix != "" {
		prefix = strings.TrimSuffix(b.cfg.Prefix, "/") + "/"
	}
	keys, err := b.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to list datasets")
	}
	var names []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if dir, file := path.Split(rest); file == manifestName && dir != "" && !strings.Contains(strings.TrimSuffix(dir, "/"), "/") {
			names = append(names, strings.TrimSuffix(dir, "/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the manifest first, then every object under the dataset.
func (b *Builder) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	unlock, err := b.lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()
	if err := b.store.DeleteObject(ctx, b.manifestKey(name)); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete manifest")
	}
	keys, err := b.store.ListObjects(ctx, b.datasetPrefix(name))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to list dataset objects")
	}
	for _, k := range keys {
		if err := b.store.DeleteObject(ctx, k); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete shard").
				WithDetailf("key=%s", k)
		}
	}
	return nil
}

//Personal.AI order the ending
