package minio

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MolGraph-Codec/internal/application/dataset"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// ShardRepository implements dataset.ShardStore on a MinIO bucket.
type ShardRepository struct {
	client *Client
	logger logging.Logger
}

var _ dataset.ShardStore = (*ShardRepository)(nil)

func NewShardRepository(client *Client, log logging.Logger) *ShardRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ShardRepository{client: client, logger: log}
}

// PutObject uploads data under key.
func (r *ShardRepository) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.Validation("key", "object key is required")
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	info, err := r.client.api.PutObject(ctx, r.client.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		r.logger.Error("shard upload failed", logging.String("key", key), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetailf("key=%s", key)
	}
	r.logger.Debug("shard uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return nil
}

// GetObject downloads key.  A missing key yields ErrCodeNotFound.
func (r *ShardRepository) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.api.GetObject(ctx, r.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, r.readError(err, key)
	}
	defer obj.Close()

	// minio.Object reports a missing key on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, r.readError(err, key)
	}
	return data, nil
}

func (r *ShardRepository) readError(err error, key string) error {
	if isNotFound(err) {
		return errors.NotFound("object not found").WithDetailf("key=%s", key)
	}
	return errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetailf("key=%s", key)
}

// ListObjects returns every key under prefix in lexical order.
func (r *ShardRepository) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	ch := r.client.api.ListObjects(ctx, r.client.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var keys []string
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed").WithDetailf("prefix=%s", prefix)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteObject removes key.  Removing a missing key is not an error.
func (r *ShardRepository) DeleteObject(ctx context.Context, key string) error {
	if err := r.client.api.RemoveObject(ctx, r.client.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed").WithDetailf("key=%s", key)
	}
	return nil
}

//Personal.AI order the ending
