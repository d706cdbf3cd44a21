package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Stats is a snapshot of the connection pool, reported by the health
// endpoint.
type Stats struct {
	OpenConns    int32  `json:"open_conns"`
	IdleConns    int32  `json:"idle_conns"`
	BusyConns    int32  `json:"busy_conns"`
	MaxConns     int32  `json:"max_conns"`
	AcquireCount int64  `json:"acquire_count"`
	AcquireTotal string `json:"acquire_total"`
	Reachable    bool   `json:"reachable"`
}

// PoolStats reads the current pool counters.
func PoolStats(pool *pgxpool.Pool) *Stats {
	stat := pool.Stat()
	return &Stats{
		OpenConns:    stat.TotalConns(),
		IdleConns:    stat.IdleConns(),
		BusyConns:    stat.AcquiredConns(),
		MaxConns:     stat.MaxConns(),
		AcquireCount: stat.AcquireCount(),
		AcquireTotal: stat.AcquireDuration().String(),
		Reachable:    stat.TotalConns() > 0,
	}
}

// HealthHandler answers GET /health/db with a ping plus pool counters.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		err := pool.Ping(ctx)
		stats := PoolStats(pool)

		if err != nil {
			stats.Reachable = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unreachable",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"pool":   stats,
		})
	}
}
