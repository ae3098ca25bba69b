package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdr-rating-server/internal/metrics"
)

// RequestMetrics counts requests by route template and status
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
