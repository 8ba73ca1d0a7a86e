package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyRelayReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, RelayReasonDeadlineExceeded},
		{"lock_timeout", &pgconn.PgError{Code: "55P03"}, RelayReasonDBLockTimeout},
		{"serialization", &pgconn.PgError{Code: "40001"}, RelayReasonSerializationFailure},
		{"duplicate", gorm.ErrDuplicatedKey, RelayReasonUniqueViolation},
		{"unknown", errors.New("boom"), RelayReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyRelayReason(tc.err))
		})
	}
}

func TestRelayMetricsObserveRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewRelayMetrics(registry, Config{ServiceName: "donare", Environment: "test"})
	require.NoError(t, err)

	m.ObserveRun(0.2, 3, 1)
	m.RecordFailure(&pgconn.PgError{Code: "40001"})

	assert.Equal(t, float64(3), testutil.ToFloat64(m.relayed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pending))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues(RelayReasonSerializationFailure)))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry, Config{ServiceName: "donare", Environment: "test"})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(m.GinMiddleware())
	engine.GET("/donations/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/donations/42", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	families, err := registry.Gather()
	require.NoError(t, err)

	var requests *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "donare_http_requests_total" {
			requests = family
		}
	}
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 1)

	metric := requests.GetMetric()[0]
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
	labels := map[string]string{}
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "/donations/:id", labels["route"])
	assert.Equal(t, "204", labels["status_code"])
}

func TestRegisterToleratesDuplicates(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	second, err := NewHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	assert.Same(t, first.requests, second.requests)
}
