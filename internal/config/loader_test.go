package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  mode: "test"
database:
  host: "db"
  port: 5433
  user: "molgraph"
  password: "secret"
  db_name: "graphs"
redis:
  addr: "cache:6379"
kafka:
  brokers: ["k1:9092", "k2:9092"]
  group_id: "featurizers"
minio:
  endpoint: "s3:9000"
  bucket: "tensors"
codec:
  max_length: 8
  pad: true
  cache_ttl: 1h
dataset:
  shard_size: 512
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "graphs", cfg.Database.DBName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Codec.MaxLength)
	assert.True(t, cfg.Codec.Pad)
	assert.Equal(t, time.Hour, cfg.Codec.CacheTTL)
	assert.Equal(t, 512, cfg.Dataset.ShardSize)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromFile_DefaultsFillGaps(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, "server:\n  port: 8082\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxLength, cfg.Codec.MaxLength)
	assert.True(t, cfg.Codec.PersistGraphs)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: ["))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "codec:\n  max_length: -3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec.max_length")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("MOLGRAPH_SERVER_PORT", "9999")
	t.Setenv("MOLGRAPH_CODEC_MAX_LENGTH", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Codec.MaxLength)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOLGRAPH_DATABASE_HOST", "pg.internal")
	t.Setenv("MOLGRAPH_MINIO_BUCKET", "shards")
	t.Setenv("MOLGRAPH_WORKER_CONCURRENCY", "2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, "shards", cfg.MinIO.Bucket)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultMaxLength, cfg.Codec.MaxLength)
}

func TestLoadOrEnv_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("MOLGRAPH_REDIS_ADDR", "r:6380")
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, "r:6380", cfg.Redis.Addr)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 16)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nmetrics:\n  namespace: \"reloaded\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Metrics.Namespace == "reloaded" {
				return
			}
		case <-deadline:
			t.Skip("filesystem notifications unavailable")
		}
	}
}

//Personal.AI order the ending
