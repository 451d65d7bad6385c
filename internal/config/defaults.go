package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "molgraph"
	DefaultDBMaxConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "molgraph:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "molgraph-workers"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molgraph-datasets"

	// DefaultMaxLength yields 11-node encodings, matching the generator shape.
	DefaultMaxLength   = 10
	DefaultCacheTTL    = 24 * time.Hour
	DefaultBatchLimit  = 1000
	DefaultConcurrency = 8

	DefaultDatasetPrefix = "datasets"
	DefaultShardSize     = 4096

	DefaultWorkerConcurrency = 4
	DefaultRequestTopic      = "molgraph.featurize.requested"
	DefaultCompletedTopic    = "molgraph.featurize.completed"
	DefaultWorkerMetricsAddr = ":9091"
	DefaultDeadLetterTopic   = "molgraph.dead_letter"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "molgraph"
)

// ApplyDefaults fills every zero-value field in cfg with the default.  Values
// already set are left unchanged so explicit configuration always wins.
//
// codec.max_length is the exception to "zero means unset": 0 is a legal
// length, so it is defaulted only through viper (see setViperDefaults).
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 8 << 20
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateWindow == 0 {
		cfg.Server.RateWindow = time.Minute
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "internal/infrastructure/database/postgres/migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = 50
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultDeadLetterTopic
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Codec ─────────────────────────────────────────────────────────────────
	if cfg.Codec.CacheTTL == 0 {
		cfg.Codec.CacheTTL = DefaultCacheTTL
	}
	if cfg.Codec.BatchLimit == 0 {
		cfg.Codec.BatchLimit = DefaultBatchLimit
	}
	if cfg.Codec.Concurrency == 0 {
		cfg.Codec.Concurrency = DefaultConcurrency
	}

	// ── Dataset ───────────────────────────────────────────────────────────────
	if cfg.Dataset.Prefix == "" {
		cfg.Dataset.Prefix = DefaultDatasetPrefix
	}
	if cfg.Dataset.ShardSize == 0 {
		cfg.Dataset.ShardSize = DefaultShardSize
	}
	if cfg.Dataset.Concurrency == 0 {
		cfg.Dataset.Concurrency = DefaultConcurrency
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.RequestTopic == "" {
		cfg.Worker.RequestTopic = DefaultRequestTopic
	}
	if cfg.Worker.CompletedTopic == "" {
		cfg.Worker.CompletedTopic = DefaultCompletedTopic
	}
	if cfg.Worker.MetricsAddr == "" {
		cfg.Worker.MetricsAddr = DefaultWorkerMetricsAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
