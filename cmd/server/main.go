// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/feliskatz/ratatat/internal/auth"
	"github.com/feliskatz/ratatat/internal/database"
	"github.com/feliskatz/ratatat/internal/handlers"
	"github.com/feliskatz/ratatat/internal/journal"
	"github.com/feliskatz/ratatat/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis and Postgres are optional sidecars: the journal and the round
	// archive switch off when they are unreachable.
	if err := journal.Connect(); err != nil {
		logger.Warnf("action journal disabled: %v", err)
	}
	if err := database.Connect(); err != nil {
		logger.Warnf("round archive disabled: %v", err)
	}

	var turnTimeout time.Duration
	if v := os.Getenv("TURN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid TURN_TIMEOUT %q: %v", v, err)
		}
		turnTimeout = d
	}

	rs := handlers.NewRoomServer(logger, turnTimeout)

	mux := http.NewServeMux()

	mux.Handle("/rooms/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		rs.CreateRoomHandler,
	)))

	mux.Handle("/rooms/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, rs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
