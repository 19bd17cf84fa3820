// Package router defines how HTTP routes are registered for the API.
// Route registration is where authorization is declared: every
// protected endpoint names the permission or role it requires, and the
// middleware enforces it against the role cache.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/velodepot/bikeshop/internal/auth"
	"github.com/velodepot/bikeshop/internal/config"
	"github.com/velodepot/bikeshop/internal/handler"
	"github.com/velodepot/bikeshop/internal/middleware"
)

// Handlers groups every handler the router wires up.
type Handlers struct {
	Auth      *handler.AuthHandler
	Bikes     *handler.BikeHandler
	Orders    *handler.WorkOrderHandler
	Dashboard *handler.DashboardHandler
	Export    *handler.ExportHandler
	Signals   *handler.SignalHandler
	Admin     *handler.AdminHandler
	WS        *handler.WSHandler
}

// Register wires all routes onto the Echo instance.
func Register(e *echo.Echo, h Handlers, cfg config.Config, cache *auth.RoleCache, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Websocket endpoint: admission caps live in the hub, not in HTTP
	// middleware.
	e.GET("/ws", h.WS.Serve)

	// Auth endpoints are the abuse target, so they get the Redis token
	// bucket in front of them.
	authGroup := e.Group("/v1/auth")
	authGroup.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Everything else requires a valid access token.
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	api.GET("/me", h.Auth.Me)

	// Catalog reads are cacheable: the data only changes on deploys.
	catalogCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	api.GET("/brands", h.Bikes.Brands, middleware.RequireAllPermissions(cache, "bikes:read"), catalogCache)
	api.GET("/models", h.Bikes.Models, middleware.RequireAllPermissions(cache, "bikes:read"), catalogCache)

	api.GET("/bikes", h.Bikes.List, middleware.RequireAllPermissions(cache, "bikes:read"))
	api.GET("/bikes/:id", h.Bikes.Get, middleware.RequireAllPermissions(cache, "bikes:read"))
	api.POST("/bikes", h.Bikes.Create, middleware.RequireAllPermissions(cache, "bikes:create"))
	api.PATCH("/bikes/:id", h.Bikes.Update, middleware.RequireAllPermissions(cache, "bikes:update"))
	api.POST("/bikes/:id/checkout", h.Bikes.Checkout, middleware.RequireAllPermissions(cache, "bikes:update"))

	api.GET("/workorders", h.Orders.List, middleware.RequireAllPermissions(cache, "workorders:read"))
	api.GET("/workorders/:id", h.Orders.Get, middleware.RequireAllPermissions(cache, "workorders:read"))
	api.POST("/workorders", h.Orders.Create, middleware.RequireAllPermissions(cache, "workorders:create"))
	api.PATCH("/workorders/:id", h.Orders.Update, middleware.RequireAllPermissions(cache, "workorders:update"))

	api.GET("/dashboard/stats", h.Dashboard.Stats, middleware.RequireAllPermissions(cache, "bikes:read", "workorders:read"))

	api.GET("/export/bikes", h.Export.ExportBikes, middleware.RequireAllPermissions(cache, "bikes:read"))
	api.GET("/export/workorders", h.Export.ExportWorkOrders, middleware.RequireAllPermissions(cache, "workorders:read"))

	api.GET("/signals", h.Signals.List, middleware.RequireAllPermissions(cache, "bikes:read"))
	api.GET("/ai/status", h.Signals.Status, middleware.RequireAllPermissions(cache, "bikes:read"))

	// Role administration is restricted by role, not permission: only
	// admins may change who can do what.
	admin := api.Group("/admin", middleware.RequireAnyRole(cache, "admin"))
	admin.GET("/roles", h.Admin.ListRoles)
	admin.POST("/roles/assign", h.Admin.AssignRole)
	admin.POST("/roles/revoke", h.Admin.RevokeRole)
	admin.POST("/cache/flush", h.Admin.FlushAuthCache)
}
