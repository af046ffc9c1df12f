// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/symmetrons/support-api/internal/config"
	"github.com/symmetrons/support-api/internal/handler"
	"github.com/symmetrons/support-api/internal/middleware"
	"github.com/symmetrons/support-api/internal/storage"
)

// RegisterRoutes wires the middlewares and all API routes onto the
// provided Echo instance. rdb may be nil, in which case caching and
// rate limiting are disabled.
func RegisterRoutes(e *echo.Echo, t *handler.TicketHandler, a *handler.AttachmentHandler, store *storage.DiskStore, rdb *redis.Client) {
	// All origins with credentials: tolerable only while the API has no
	// authentication; anything adding auth must tighten this.
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOriginFunc:  func(origin string) (bool, error) { return true, nil },
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Requested-With"},
		AllowCredentials: true,
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Attachment blobs are served statically under their public prefix;
	// stored keys never contain client-controlled names.
	e.Static(storage.PublicPrefix, store.Root())

	// The stats aggregate is the only cached route; ticket mutations
	// invalidate the cache prefix so the dashboard never lags a write
	// by more than one round trip.
	statsCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/tickets", t.List)
	e.GET("/tickets/stats", t.Stats, statsCache)
	e.POST("/tickets", t.Create)
	e.PUT("/tickets/:id", t.Update)
	e.POST("/tickets/:id/resolve", t.Resolve)
	e.DELETE("/tickets/:id", t.Delete)

	// Flat attachment listing, admin/debug only.
	e.GET("/attachments", a.List)
}
