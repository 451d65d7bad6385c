package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{rdb: db, config: &RedisConfig{}, logger: logging.NewNopLogger()}
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithPrefix("test:"), WithJitter(false), WithDefaultTTL(time.Hour))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type encoding struct {
	SMILES string `json:"smiles"`
	Nodes  []int  `json:"nodes"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := encoding{SMILES: "CCO", Nodes: []int{6, 6, 8}}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").SetVal(string(data))

	var dest encoding
	require.NoError(s.T(), s.cache.Get(context.Background(), "k1", &dest))
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var dest encoding
	err := s.cache.Get(context.Background(), "k1", &dest)
	assert.Equal(s.T(), ErrCacheMiss, err)
	assert.True(s.T(), pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_NullMarker() {
	s.mock.ExpectGet("test:k1").SetVal(nullMarker)

	var dest encoding
	assert.Equal(s.T(), ErrCacheMiss, s.cache.Get(context.Background(), "k1", &dest))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k1").SetErr(assert.AnError)

	var dest encoding
	err := s.cache.Get(context.Background(), "k1", &dest)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	assert.False(s.T(), pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:k1").SetVal("{not json")

	var dest encoding
	err := s.cache.Get(context.Background(), "k1", &dest)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestSet_DefaultTTL() {
	val := encoding{SMILES: "C", Nodes: []int{6}}
	data, _ := json.Marshal(val)
	s.mock.ExpectSet("test:k1", data, time.Hour).SetVal("OK")

	assert.NoError(s.T(), s.cache.Set(context.Background(), "k1", val, 0))
}

func (s *CacheTestSuite) TestSet_Error() {
	data, _ := json.Marshal("v")
	s.mock.ExpectSet("test:k1", data, time.Minute).SetErr(assert.AnError)

	err := s.cache.Set(context.Background(), "k1", "v", time.Minute)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	assert.NoError(s.T(), s.cache.Delete(context.Background(), "k1", "k2"))
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	ok, err := s.cache.Exists(context.Background(), "k1")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestGetOrSet_Hit() {
	val := encoding{SMILES: "CCO"}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").SetVal(string(data))

	loaderCalled := false
	var dest encoding
	err := s.cache.GetOrSet(context.Background(), "k1", &dest, time.Minute, func(context.Context) (interface{}, error) {
		loaderCalled = true
		return nil, nil
	})
	require.NoError(s.T(), err)
	assert.False(s.T(), loaderCalled)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoads() {
	val := encoding{SMILES: "CC=O", Nodes: []int{6, 6, 8}}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").RedisNil()
	s.mock.ExpectSet("test:k1", data, time.Minute).SetVal("OK")

	var dest encoding
	err := s.cache.GetOrSet(context.Background(), "k1", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return val, nil
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_NilCachesNull() {
	s.mock.ExpectGet("test:k1").RedisNil()
	s.mock.ExpectSet("test:k1", nullMarker, 30*time.Second).SetVal("OK")

	var dest encoding
	err := s.cache.GetOrSet(context.Background(), "k1", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var dest encoding
	err := s.cache.GetOrSet(context.Background(), "k1", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(s.T(), err, assert.AnError)
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:featurize:*", 100).SetVal([]string{"test:featurize:a", "test:featurize:b"}, 7)
	s.mock.ExpectDel("test:featurize:a", "test:featurize:b").SetVal(2)
	s.mock.ExpectScan(7, "test:featurize:*", 100).SetVal([]string{"test:featurize:c"}, 0)
	s.mock.ExpectDel("test:featurize:c").SetVal(1)

	n, err := s.cache.DeleteByPrefix(context.Background(), "featurize:")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), n)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestTTLJitter(t *testing.T) {
	c := &redisCache{defaultTTL: time.Hour, jitter: true}
	for i := 0; i < 50; i++ {
		got := c.ttlFor(0)
		assert.GreaterOrEqual(t, got, 54*time.Minute)
		assert.LessOrEqual(t, got, 66*time.Minute)
	}
	c.jitter = false
	assert.Equal(t, 10*time.Second, c.ttlFor(10*time.Second))
}

//Personal.AI order the ending
