package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/config"
	"github.com/iliyamo/meeting-room-reservation/internal/database"
	"github.com/iliyamo/meeting-room-reservation/internal/handler"
	"github.com/iliyamo/meeting-room-reservation/internal/middleware"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the MySQL pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)

	// The booking core: the in-memory interval index is the per-room
	// serialization point, the versioned rows in MySQL arbitrate the
	// cancel-vs-sweep races.
	index := booking.NewIntervalStore()
	manager := booking.NewManager(bookings, index, rooms, booking.SystemClock(), booking.Options{
		AllowLateCancellation: cfg.AllowLateCancellation,
	})
	checker := booking.NewChecker(index, rooms)
	gate := booking.NewGate(bookings, reviews)

	// Rebuild the index from the active rows so reservations made before
	// the last restart keep blocking their slots.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	active, err := bookings.ListActive(warmCtx)
	cancelWarm()
	if err != nil {
		log.Fatalf("warm interval index: %v", err)
	}
	if err := manager.WarmIndex(active); err != nil {
		log.Fatalf("warm interval index: %v", err)
	}
	log.Printf("interval index warmed with %d active bookings", len(active))

	// Periodic sweep: confirmed bookings whose end has passed are moved
	// to COMPLETED so their slots free up and reviews unlock.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := manager.CompleteExpired(ctx, now.UTC())
			cancel()
			if err != nil {
				log.Printf("sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweep: completed %d bookings", n)
			}
		}
	}()

	// Background consumer logging booking events to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()

	// Redis-backed rate limiting and response caching; both degrade to
	// pass-throughs when disabled or when Redis is unreachable.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	var cacheMW echo.MiddlewareFunc
	if cacheCfg := config.LoadCacheConfig(); cacheCfg.Enabled && rdb != nil {
		cacheMW = middleware.NewRedisCache(cacheCfg, rdb)
	}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	roomH := handler.NewRoomHandler(rooms)
	bookingH := handler.NewBookingHandler(manager, checker, bookings, rooms)
	reviewH := handler.NewReviewHandler(gate, reviews)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, roomH, reviewH, bookingH, cacheMW)
	router.RegisterBookings(e, bookingH, reviewH, cfg.JWTSecret)
	router.RegisterManagement(e, roomH, reviewH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
