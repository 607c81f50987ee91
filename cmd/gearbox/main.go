package main

import (
	"log"
	"os"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/auth"
	"github.com/gearbox-dev/gearbox/internal/channels"
	"github.com/gearbox-dev/gearbox/internal/handlers"
	"github.com/gearbox-dev/gearbox/internal/intervals"
	"github.com/gearbox-dev/gearbox/internal/notify"
	"github.com/gearbox-dev/gearbox/internal/router"
	"github.com/gearbox-dev/gearbox/internal/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	var err error

	err = godotenv.Load()

	if err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	if err = auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT: %v", err)
	}

	if err = db.ConnectDatabase(os.Getenv("DATABASE_URL")); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	registry := channels.NewRegistry()
	dispatcher := notify.NewDispatcher(db.DB, registry, handlers.BroadcastFeed)
	evaluator := notify.NewEvaluator(db.DB, dispatcher)
	bus := notify.NewBus(evaluator)
	checker := intervals.NewChecker(db.DB, dispatcher, bus)

	sched := scheduler.New(db.DB, dispatcher)
	sched.OnDaily(checker.SweepAll)

	if err = sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	handlers.Configure(registry, dispatcher, bus, sched, checker)

	r := router.NewRouter()

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err = r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
