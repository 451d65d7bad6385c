// Package featurization provides the application-level service around the
// molecule graph codec.  It sits between the HTTP/CLI/Kafka entry points and
// the domain codec, adding caching, persistence, batching and metrics.
package featurization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
)

// Service defines the featurization use cases.
type Service interface {
	Featurize(ctx context.Context, input *FeaturizeInput) (*FeaturizeResult, error)
	FeaturizeBatch(ctx context.Context, input *BatchInput) (*BatchResult, error)
	Defeaturize(ctx context.Context, input *DefeaturizeInput) (*DefeaturizeResult, error)
	GetGraph(ctx context.Context, id string) (*molgraph.GraphRecord, error)
	ListGraphs(ctx context.Context, page common.Pagination) (*GraphPage, error)
	DeleteGraph(ctx context.Context, id string) error
	BondCodes() []BondCodeEntry
}

// Cache is the subset of the Redis cache the service needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Metrics receives codec observations.
type Metrics interface {
	ObserveFeaturize(outcome string, d time.Duration)
	ObserveDefeaturize(outcome string, d time.Duration, dropped int)
	CacheAccess(hit bool)
	ObserveBatch(size, failed int)
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Config holds the service defaults.
type Config struct {
	MaxLength         int
	Pad               bool
	StrictDefeaturize bool
	CacheTTL          time.Duration
	PersistGraphs     bool
	StoreGraphs       bool
	BatchLimit        int
	Concurrency       int
}

// FeaturizeInput is one featurization request.  A nil MaxLength selects
// Config.MaxLength.
type FeaturizeInput struct {
	SMILES    string
	MaxLength *int
	Pad       bool
	Persist   bool
}

// FeaturizeResult is the encoding of one molecule.
type FeaturizeResult struct {
	ID       string                 `json:"id,omitempty"`
	SMILES   string                 `json:"smiles"`
	Graph    *molgraph.EncodedGraph `json:"graph"`
	NumAtoms int                    `json:"num_atoms"`
	NumBonds int                    `json:"num_bonds"`
	Padded   bool                   `json:"padded"`
	Cached   bool                   `json:"-"`
}

// BatchInput encodes several molecules with shared parameters.
type BatchInput struct {
	SMILES    []string
	MaxLength *int
	Pad       bool
	Persist   bool
}

// BatchItemError reports one failed item of a batch.
type BatchItemError struct {
	Index  int
	SMILES string
	Err    error
}

// BatchResult keeps input order: Results[i] is nil when item i failed.
type BatchResult struct {
	Results []*FeaturizeResult
	Errors  []BatchItemError
}

// Succeeded returns the number of encoded items.
func (r *BatchResult) Succeeded() int {
	return len(r.Results) - len(r.Errors)
}

// DefeaturizeInput is one de-featurization request.  A nil Strict selects
// Config.StrictDefeaturize.
type DefeaturizeInput struct {
	Nodes       []float64
	Edges       [][]float64
	Strict      *bool
	Round       bool
	TrimPadding bool
}

// DroppedEdge is an edge value the lenient policy turned into "no bond".
type DroppedEdge struct {
	A     int     `json:"a"`
	B     int     `json:"b"`
	Value float64 `json:"value"`
}

// DefeaturizeResult is a rebuilt molecule.
type DefeaturizeResult struct {
	Molecule *molgraph.Mol
	SMILES   string
	Formula  string
	Dropped  []DroppedEdge
}

// BondCodeEntry is one row of the bond category table.
type BondCodeEntry struct {
	Code  int
	Type  molgraph.BondType
	Order float64
}

// GraphPage is one page of persisted graphs, newest first.
type GraphPage struct {
	Graphs     []*molgraph.GraphRecord
	Pagination common.Pagination
}

// Option customises the service.
type Option func(*serviceImpl)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithGraphStore enables writing molecule topologies to the graph store.
func WithGraphStore(g molgraph.GraphStore) Option {
	return func(s *serviceImpl) { s.store = g }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

type serviceImpl struct {
	cfg     Config
	repo    molgraph.GraphRepository
	store   molgraph.GraphStore
	cache   Cache
	metrics Metrics
	logger  logging.Logger
}

// NewService creates the featurization service.  repo may be nil, in which
// case nothing is persisted and GetGraph reports not found.
func NewService(cfg Config, repo molgraph.GraphRepository, logger logging.Logger, opts ...Option) Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		cfg:     cfg,
		repo:    repo,
		logger:  logger.Named("featurization"),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Featurize(ctx context.Context, input *FeaturizeInput) (*FeaturizeResult, error) {
	if input == nil || strings.TrimSpace(input.SMILES) == "" {
		return nil, errors.Validation("smiles", "smiles is required")
	}
	start := time.Now()
	res, err := s.featurize(ctx, strings.TrimSpace(input.SMILES), s.maxLength(input.MaxLength), input.Pad || s.cfg.Pad, input.Persist)
	if err != nil {
		s.metrics.ObserveFeaturize(OutcomeError, time.Since(start))
		logging.FromContext(ctx, s.logger).Debug("featurize failed",
			logging.String("smiles", input.SMILES),
			logging.String("code", errors.GetCode(err).String()),
		)
		return nil, err
	}
	s.metrics.ObserveFeaturize(OutcomeSuccess, time.Since(start))
	return res, nil
}

func (s *serviceImpl) maxLength(v *int) int {
	if v != nil {
		return *v
	}
	return s.cfg.MaxLength
}

func (s *serviceImpl) featurize(ctx context.Context, smiles string, maxLength int, pad, persist bool) (*FeaturizeResult, error) {
	persist = (persist || s.cfg.PersistGraphs) && s.repo != nil
	key := cacheKey(smiles, maxLength, pad)

	if s.cache != nil {
		var cached FeaturizeResult
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil && (!persist || cached.ID != ""):
			s.metrics.CacheAccess(true)
			cached.Cached = true
			return &cached, nil
		case err == nil:
			// Cached without an id; fall through to persist it.
			s.metrics.CacheAccess(true)
		case errors.IsNotFound(err):
			s.metrics.CacheAccess(false)
		default:
			s.metrics.CacheAccess(false)
			s.logger.Warn("cache read failed", logging.String("key", key), logging.Err(err))
		}
	}

	m, err := molgraph.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	var opts []molgraph.FeaturizeOption
	if pad {
		opts = append(opts, molgraph.WithPadding())
	}
	g, err := molgraph.FeaturizeGraph(m, maxLength, opts...)
	if err != nil {
		return nil, err
	}

	rec := molgraph.NewGraphRecord(smiles, g, m.NumAtoms())
	res := &FeaturizeResult{
		SMILES:   smiles,
		Graph:    g,
		NumAtoms: rec.NumAtoms,
		NumBonds: rec.NumBonds,
		Padded:   rec.Padded,
	}

	if persist {
		if err := s.repo.Save(ctx, rec); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to persist encoded graph")
		}
		res.ID = rec.ID.String()
		if s.store != nil && s.cfg.StoreGraphs {
			if err := s.store.SaveMolecule(ctx, res.ID, smiles, m); err != nil {
				s.logger.Warn("graph store write failed", logging.String("id", res.ID), logging.Err(err))
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
		}
	}
	return res, nil
}

// cacheKey identifies an encoding by its inputs.
func cacheKey(smiles string, maxLength int, pad bool) string {
	sum := sha256.Sum256([]byte(smiles))
	return "featurize:v1:" + strconv.Itoa(maxLength) + ":" + strconv.FormatBool(pad) + ":" + hex.EncodeToString(sum[:])
}

func (s *serviceImpl) FeaturizeBatch(ctx context.Context, input *BatchInput) (*BatchResult, error) {
	if input == nil || len(input.SMILES) == 0 {
		return nil, errors.Validation("smiles", "smiles must not be empty")
	}
	if s.cfg.BatchLimit > 0 && len(input.SMILES) > s.cfg.BatchLimit {
		return nil, errors.Validation("smiles", "batch exceeds limit").
			WithDetailf("size=%d limit=%d", len(input.SMILES), s.cfg.BatchLimit)
	}

	maxLength := s.maxLength(input.MaxLength)
	out := &BatchResult{Results: make([]*FeaturizeResult, len(input.SMILES))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, smiles := range input.SMILES {
		i, smiles := i, smiles
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Featurize(gctx, &FeaturizeInput{
				SMILES:    smiles,
				MaxLength: &maxLength,
				Pad:       input.Pad,
				Persist:   input.Persist,
			})
			if err != nil {
				mu.Lock()
				out.Errors = append(out.Errors, BatchItemError{Index: i, SMILES: smiles, Err: err})
				mu.Unlock()
				return nil
			}
			out.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch featurization interrupted")
	}

	sort.Slice(out.Errors, func(a, b int) bool { return out.Errors[a].Index < out.Errors[b].Index })
	s.metrics.ObserveBatch(len(input.SMILES), len(out.Errors))
	s.logger.Info("batch featurized",
		logging.Int("size", len(input.SMILES)),
		logging.Int("failed", len(out.Errors)),
	)
	return out, nil
}

func (s *serviceImpl) Defeaturize(ctx context.Context, input *DefeaturizeInput) (*DefeaturizeResult, error) {
	if input == nil {
		return nil, errors.Validation("nodes", "input is required")
	}
	start := time.Now()

	strict := s.cfg.StrictDefeaturize
	if input.Strict != nil {
		strict = *input.Strict
	}

	var dropped []DroppedEdge
	opts := []molgraph.DefeaturizeOption{
		molgraph.WithDropObserver(func(a, b int, v float64) {
			dropped = append(dropped, DroppedEdge{A: a, B: b, Value: v})
		}),
	}
	if strict {
		opts = append(opts, molgraph.WithStrict())
	}
	if input.Round {
		opts = append(opts, molgraph.WithRounding())
	}
	if input.TrimPadding {
		opts = append(opts, molgraph.WithTrimPadding())
	}

	m, err := molgraph.Defeaturize(input.Nodes, input.Edges, opts...)
	if err != nil {
		s.metrics.ObserveDefeaturize(OutcomeError, time.Since(start), 0)
		return nil, err
	}
	s.metrics.ObserveDefeaturize(OutcomeSuccess, time.Since(start), len(dropped))
	if len(dropped) > 0 {
		logging.FromContext(ctx, s.logger).Debug("lenient decoding dropped edge values",
			logging.Int("dropped", len(dropped)))
	}

	return &DefeaturizeResult{
		Molecule: m,
		SMILES:   molgraph.WriteSMILES(m),
		Formula:  m.Formula(),
		Dropped:  dropped,
	}, nil
}

func (s *serviceImpl) GetGraph(ctx context.Context, id string) (*molgraph.GraphRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Validation("id", "id must be a UUID")
	}
	if s.repo == nil {
		return nil, errors.New(errors.ErrCodeGraphNotFound, "graph not found").WithDetailf("id=%s", id)
	}
	return s.repo.FindByID(ctx, uid)
}

func (s *serviceImpl) ListGraphs(ctx context.Context, page common.Pagination) (*GraphPage, error) {
	if err := page.Validate(); err != nil {
		return nil, errors.Validation("pagination", err.Error())
	}
	if s.repo == nil {
		return &GraphPage{Graphs: []*molgraph.GraphRecord{}, Pagination: page}, nil
	}
	recs, total, err := s.repo.List(ctx, page.PageSize, page.Offset())
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*molgraph.GraphRecord{}
	}
	page.Total = total
	return &GraphPage{Graphs: recs, Pagination: page}, nil
}

// DeleteGraph removes a persisted graph together with its topology and the
// cached encodings that carry its id.
func (s *serviceImpl) DeleteGraph(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return errors.Validation("id", "id must be a UUID")
	}
	if s.repo == nil {
		return errors.New(errors.ErrCodeGraphNotFound, "graph not found").WithDetailf("id=%s", id)
	}
	rec, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, uid); err != nil {
		return err
	}

	if s.store != nil && s.cfg.StoreGraphs {
		if err := s.store.DeleteMolecule(ctx, id); err != nil && !errors.IsCode(err, errors.ErrCodeGraphNotFound) {
			s.logger.Warn("graph store delete failed", logging.String("id", id), logging.Err(err))
		}
	}
	if s.cache != nil && rec.Graph != nil {
		keys := []string{
			cacheKey(rec.SMILES, rec.Graph.MaxLength, false),
			cacheKey(rec.SMILES, rec.Graph.MaxLength, true),
		}
		if err := s.cache.Delete(ctx, keys...); err != nil {
			s.logger.Warn("cache invalidation failed", logging.String("id", id), logging.Err(err))
		}
	}
	s.logger.Info("graph deleted", logging.String("id", id), logging.String("smiles", rec.SMILES))
	return nil
}

func (s *serviceImpl) BondCodes() []BondCodeEntry {
	types := molgraph.BondTypes()
	out := make([]BondCodeEntry, 0, len(types))
	for _, t := range types {
		code, _ := molgraph.EncodeBond(t)
		out = append(out, BondCodeEntry{Code: code, Type: t, Order: molgraph.BondOrder(t)})
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) ObserveFeaturize(string, time.Duration)        {}
func (nopMetrics) ObserveDefeaturize(string, time.Duration, int) {}
func (nopMetrics) CacheAccess(bool)                              {}
func (nopMetrics) ObserveBatch(int, int)                         {}

//Personal.AI order the ending
