package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/velodepot/bikeshop/internal/auth"
	"github.com/velodepot/bikeshop/internal/config"
	"github.com/velodepot/bikeshop/internal/database"
	"github.com/velodepot/bikeshop/internal/handler"
	"github.com/velodepot/bikeshop/internal/queue"
	"github.com/velodepot/bikeshop/internal/realtime"
	"github.com/velodepot/bikeshop/internal/repository"
	"github.com/velodepot/bikeshop/internal/router"
	"github.com/velodepot/bikeshop/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories
	bikes := repository.NewBikeRepo(db)
	movements := repository.NewMovementRepo(db)
	orders := repository.NewWorkOrderRepo(db)
	catalog := repository.NewCatalogRepo(db)
	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Authorization cache, swept in the background.
	roleCache := auth.NewRoleCache(roles, auth.DefaultTTL, auth.DefaultMaxEntries)
	go roleCache.Run(ctx, auth.DefaultSweepInterval)

	// Realtime hub with heartbeat and per-IP counter reset.
	hub := realtime.NewHub(realtime.DefaultMaxClients, realtime.DefaultMaxPerIP)
	go hub.Run(ctx)

	// Events fan out to connected websocket clients and to the durable
	// queue; the consumer writes the audit log.
	publisher := queue.NewPublisher()
	events := service.MultiBroadcaster{hub, publisher}
	go func() {
		if err := queue.StartInventoryConsumer(); err != nil {
			log.Printf("inventory-consumer: %v", err)
		}
	}()

	// Services
	inventory := service.NewInventoryService(bikes, events)
	workOrders := service.NewWorkOrderService(orders, bikes, events)
	dashboard := service.NewDashboardService(bikes, orders)
	signals := service.NewSignalService(bikes)

	// Redis backs rate limiting and response caching; nil disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, roles, tokens, roleCache),
		Bikes:     handler.NewBikeHandler(inventory, bikes, movements, orders, catalog),
		Orders:    handler.NewWorkOrderHandler(workOrders, orders),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Export:    handler.NewExportHandler(bikes, orders),
		Signals:   handler.NewSignalHandler(signals),
		Admin:     handler.NewAdminHandler(roles, roleCache),
		WS:        handler.NewWSHandler(hub),
	}, cfg, roleCache, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
