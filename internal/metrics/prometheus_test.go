// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	RegisterMetricsEndpoint(router)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestRegisterMetricsEndpointWithPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	RegisterMetricsEndpointWithPath(router, "/internal/metrics")

	req := httptest.NewRequest(http.MethodGet, "/internal/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordClaim(t *testing.T) {
	granted := testutil.ToFloat64(ClaimsTotal.WithLabelValues("granted"))
	rejected := testutil.ToFloat64(ClaimsTotal.WithLabelValues("rejected"))

	RecordClaim(true)
	RecordClaim(false)
	RecordClaim(false)

	require.Equal(t, granted+1, testutil.ToFloat64(ClaimsTotal.WithLabelValues("granted")))
	require.Equal(t, rejected+2, testutil.ToFloat64(ClaimsTotal.WithLabelValues("rejected")))
}

func TestRecordTaskFiring(t *testing.T) {
	RecordTaskFiring("report", true)
	RecordTaskFiring("report", false)

	assert.GreaterOrEqual(t, testutil.ToFloat64(TaskFirings.WithLabelValues("report", "ran")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(TaskFirings.WithLabelValues("report", "skipped")), 1.0)
}
