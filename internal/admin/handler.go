// Package admin exposes the arbiter's observability HTTP API: health,
// currently held locks and Prometheus metrics. It is read-only; there is no
// way to release or reassign a lock through it, since ownership is bound to
// client connections.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/lockgate/internal/arbiter"
	"github.com/kneutral-org/lockgate/internal/logging"
	"github.com/kneutral-org/lockgate/internal/metrics"
)

// Handler serves the admin endpoints over a lock table.
type Handler struct {
	table  *arbiter.Table
	logger zerolog.Logger
}

// NewHandler creates an admin handler reading from table.
func NewHandler(table *arbiter.Table, logger zerolog.Logger) *Handler {
	return &Handler{
		table:  table,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// RegisterRoutes registers the lock inspection routes on the provided group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/locks", h.ListLocks)
}

// LocksResponse is the payload of GET /api/v1/locks.
type LocksResponse struct {
	Count int                `json:"count"`
	Locks []arbiter.LockInfo `json:"locks"`
}

// ListLocks returns a point-in-time snapshot of the held locks.
func (h *Handler) ListLocks(c *gin.Context) {
	locks := h.table.Snapshot()
	c.JSON(http.StatusOK, LocksResponse{
		Count: len(locks),
		Locks: locks,
	})
}

// NewRouter assembles the full admin router: health check, lock inspection
// under /api/v1 and the Prometheus endpoint.
func NewRouter(table *arbiter.Table, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	apiV1 := router.Group("/api/v1")
	NewHandler(table, logger).RegisterRoutes(apiV1)

	metrics.RegisterMetricsEndpoint(router)
	return router
}
