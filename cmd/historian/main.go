// cmd/historian/main.go is the entrypoint of the journal historian, a
// worker that drains the Redis action journal into Postgres.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/feliskatz/ratatat/internal/database"
	"github.com/feliskatz/ratatat/internal/historian"
	"github.com/feliskatz/ratatat/internal/journal"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := database.Connect(); err != nil {
		log.Fatalf("historian needs Postgres: %v", err)
	}
	if err := journal.Connect(); err != nil {
		log.Fatalf("historian needs Redis: %v", err)
	}

	hs := historian.New(journal.Rdb)
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	hs.Stop()
	log.Println("historian shutdown complete.")
}
