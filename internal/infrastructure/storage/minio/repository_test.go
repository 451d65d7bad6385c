package minio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	api  *memoryAPI
	repo *ShardRepository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = newMemoryAPI()
	client := NewClientWithAPI(s.api, "datasets", "", nil)
	s.Require().NoError(client.EnsureBucket(s.ctx))
	s.repo = NewShardRepository(client, nil)
}

func (s *RepositoryTestSuite) TestPutGetRoundTrip() {
	s.Require().NoError(s.repo.PutObject(s.ctx, "qm9/shard-00000.msgpack", []byte{1, 2, 3}, "application/msgpack"))
	data, err := s.repo.GetObject(s.ctx, "qm9/shard-00000.msgpack")
	s.Require().NoError(err)
	s.Equal([]byte{1, 2, 3}, data)
	s.Equal("application/msgpack", s.api.types["qm9/shard-00000.msgpack"])
}

func (s *RepositoryTestSuite) TestPutValidatesKey() {
	err := s.repo.PutObject(s.ctx, "", nil, "")
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *RepositoryTestSuite) TestPutFailure() {
	s.api.putErr = errors.New(errors.ErrCodeInternal, "disk full")
	err := s.repo.PutObject(s.ctx, "k", []byte("x"), "")
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *RepositoryTestSuite) TestGetMissingIsNotFound() {
	_, err := s.repo.GetObject(s.ctx, "qm9/manifest.json")
	s.True(errors.IsNotFound(err))
}

func (s *RepositoryTestSuite) TestListSortedByPrefix() {
	for _, k := range []string{"qm9/shard-00001", "qm9/shard-00000", "zinc/shard-00000"} {
		s.Require().NoError(s.repo.PutObject(s.ctx, k, []byte("x"), ""))
	}
	keys, err := s.repo.ListObjects(s.ctx, "qm9/")
	s.Require().NoError(err)
	s.Equal([]string{"qm9/shard-00000", "qm9/shard-00001"}, keys)
}

func (s *RepositoryTestSuite) TestListError() {
	s.api.listErr = errors.New(errors.ErrCodeInternal, "timeout")
	_, err := s.repo.ListObjects(s.ctx, "")
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *RepositoryTestSuite) TestDelete() {
	s.Require().NoError(s.repo.PutObject(s.ctx, "k", []byte("x"), ""))
	s.Require().NoError(s.repo.DeleteObject(s.ctx, "k"))
	_, err := s.repo.GetObject(s.ctx, "k")
	s.True(errors.IsNotFound(err))
	s.NoError(s.repo.DeleteObject(s.ctx, "k"))
}

func (s *RepositoryTestSuite) TestDeleteMissingBucketIgnored() {
	repo := NewShardRepository(NewClientWithAPI(s.api, "absent", "", nil), nil)
	s.NoError(repo.DeleteObject(s.ctx, "k"))
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

//Personal.AI order the ending
