package prometheus

import (
	"strconv"
	"time"
)

// Default buckets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultCodecDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultJobDurationBuckets   = []float64{.1, .5, 1, 5, 10, 30, 60, 300}
	DefaultBatchSizeBuckets     = []float64{1, 10, 50, 100, 500, 1000, 5000}
	DefaultSizeBuckets          = []float64{1 << 10, 1 << 14, 1 << 18, 1 << 20, 1 << 22, 1 << 24, 1 << 26}
)

// CodecMetrics holds every metric family of the codec services.  It
// satisfies the metrics ports of the featurization service, the job handler
// and the dataset builder.
type CodecMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Codec
	FeaturizeTotal      CounterVec
	FeaturizeDuration   HistogramVec
	DefeaturizeTotal    CounterVec
	DefeaturizeDuration HistogramVec
	DroppedEdgesTotal   CounterVec
	BatchSize           HistogramVec
	BatchFailuresTotal  CounterVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Jobs
	JobsTotal        CounterVec
	JobDuration      HistogramVec
	MessagesTotal    CounterVec
	DeadLettersTotal CounterVec
	ConsumerLag      GaugeVec

	// Datasets
	ShardsWrittenTotal  CounterVec
	SamplesWrittenTotal CounterVec
	ShardSize           HistogramVec
	SamplesSkippedTotal CounterVec

	// Infrastructure
	DBQueryDuration   HistogramVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// NewCodecMetrics registers all families on collector.
func NewCodecMetrics(collector MetricsCollector) *CodecMetrics {
	m := &CodecMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.FeaturizeTotal = collector.RegisterCounter("featurize_total", "Featurize calls by outcome", "outcome")
	m.FeaturizeDuration = collector.RegisterHistogram("featurize_duration_seconds", "Featurize duration", DefaultCodecDurationBuckets, "outcome")
	m.DefeaturizeTotal = collector.RegisterCounter("defeaturize_total", "Defeaturize calls by outcome", "outcome")
	m.DefeaturizeDuration = collector.RegisterHistogram("defeaturize_duration_seconds", "Defeaturize duration", DefaultCodecDurationBuckets, "outcome")
	m.DroppedEdgesTotal = collector.RegisterCounter("dropped_edges_total", "Edge values skipped by the lenient decoder")
	m.BatchSize = collector.RegisterHistogram("batch_size", "Molecules per featurize batch", DefaultBatchSizeBuckets)
	m.BatchFailuresTotal = collector.RegisterCounter("batch_failures_total", "Molecules rejected inside batches")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.JobsTotal = collector.RegisterCounter("jobs_total", "Featurize jobs by status", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Featurize job duration", DefaultJobDurationBuckets, "status")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Consumed messages", "topic", "result")
	m.DeadLettersTotal = collector.RegisterCounter("dead_letters_total", "Messages sent to the dead letter topic", "topic")
	m.ConsumerLag = collector.RegisterGauge("consumer_lag", "Consumer lag in messages", "topic")

	m.ShardsWrittenTotal = collector.RegisterCounter("dataset_shards_written_total", "Dataset shards written")
	m.SamplesWrittenTotal = collector.RegisterCounter("dataset_samples_written_total", "Dataset samples written")
	m.ShardSize = collector.RegisterHistogram("dataset_shard_bytes", "Encoded shard size", DefaultSizeBuckets)
	m.SamplesSkippedTotal = collector.RegisterCounter("dataset_samples_skipped_total", "Molecules skipped while building datasets")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultCodecDurationBuckets, "db", "operation")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

func (m *CodecMetrics) ObserveFeaturize(outcome string, d time.Duration) {
	m.FeaturizeTotal.WithLabelValues(outcome).Inc()
	m.FeaturizeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *CodecMetrics) ObserveDefeaturize(outcome string, d time.Duration, dropped int) {
	m.DefeaturizeTotal.WithLabelValues(outcome).Inc()
	m.DefeaturizeDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if dropped > 0 {
		m.DroppedEdgesTotal.WithLabelValues().Add(float64(dropped))
	}
}

func (m *CodecMetrics) CacheAccess(hit bool) {
	RecordCacheAccess(m, "graph", hit)
}

func (m *CodecMetrics) ObserveBatch(size, failed int) {
	m.BatchSize.WithLabelValues().Observe(float64(size))
	if failed > 0 {
		m.BatchFailuresTotal.WithLabelValues().Add(float64(failed))
	}
}

func (m *CodecMetrics) ObserveJob(status string, d time.Duration) {
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *CodecMetrics) ShardWritten(samples, bytes int) {
	m.ShardsWrittenTotal.WithLabelValues().Inc()
	m.SamplesWrittenTotal.WithLabelValues().Add(float64(samples))
	m.ShardSize.WithLabelValues().Observe(float64(bytes))
}

func (m *CodecMetrics) SamplesSkipped(n int) {
	m.SamplesSkippedTotal.WithLabelValues().Add(float64(n))
}

// MessageConsumed counts a consumed message; result is "ok", "retry" or
// "dead_letter".
func (m *CodecMetrics) MessageConsumed(topic, result string) {
	m.MessagesTotal.WithLabelValues(topic, result).Inc()
	if result == "dead_letter" {
		m.DeadLettersTotal.WithLabelValues(topic).Inc()
	}
}

func (m *CodecMetrics) SetConsumerLag(topic string, lag int64) {
	m.ConsumerLag.WithLabelValues(topic).Set(float64(lag))
}

// ObserveQuery records one storage round trip.
func (m *CodecMetrics) ObserveQuery(db, operation string, d time.Duration, err error) {
	RecordDBQuery(m, db, operation, d, err)
}

// Helpers

func RecordHTTPRequest(metrics *CodecMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordDBQuery(metrics *CodecMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *CodecMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordHealth(metrics *CodecMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(metrics *CodecMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
