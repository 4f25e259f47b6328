package metrics

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/items/1", "/api/items/2", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/api/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "tally_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.ObserveCompletion("checkbox")
	m.ObserveCompletion("checkbox")
	m.ObserveSkip("toggle")
	m.RecordDBStats(sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CompletionsLogged.WithLabelValues("checkbox")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkipToggles.WithLabelValues("toggle")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBConnPoolStats.WithLabelValues("idle")))

	// 独立 Registry 允许重复创建
	assert.NotPanics(t, func() { New() })

	var disabled *Metrics
	assert.NotPanics(t, func() { disabled.ObserveCompletion("rating") })
}
