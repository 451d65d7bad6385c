package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count and latency per route template.  Unmatched
// routes are grouped under "unmatched" to bound label cardinality.
func Metrics(m *prometheus.CodecMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := m.HTTPActiveRequests.WithLabelValues(c.Request.Method)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
