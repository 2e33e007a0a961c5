package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/eventclient"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The lock coordinator cannot run without Redis, and without the
		// coordinator no admission decision is safe.
		log.Fatal("redis: connection failed")
	}

	locks := lock.New(lock.NewRedisStore(rdb), cfg.LockTTL)
	bookings := repository.NewBookingRepo(db)
	events := eventclient.New(cfg.EventServiceBaseURL)
	publisher := queue.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	svc := service.NewAdmissionService(bookings, events, locks, publisher, service.FullPolicy(cfg.FullPolicy))

	// Audit consumer: mirrors booking events into logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(context.Background(), cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID); err != nil {
			log.Printf("booking-consumer: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBookings(e, handler.NewBookingHandler(svc), cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, full_policy=%s)", addr, cfg.Env, cfg.FullPolicy)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
