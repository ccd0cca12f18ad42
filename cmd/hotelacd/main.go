// Command hotelacd runs the central-AC control plane: the tick driver,
// the control façade, and a thin HTTP surface over it. Wiring and
// graceful shutdown follow the teacher's root main.go and
// internal/app/app.go (signal handling, deferred logger.Close, a
// goroutine running the HTTP server shut down with a timeout context),
// with the addition of the plant's own real-time ticker goroutine, which
// this repo's design keeps under the same lock as command handling
// (internal/core.Core.Tick takes the same mutex as Control/CheckIn/
// CheckOut, and exactly one goroutine calls it).
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"backend/internal/core"
	"backend/internal/httpapi"
	"backend/internal/logger"
	"backend/internal/storage"
)

const (
	dbPath          = "hotel.db"
	serviceCapacity = 3
	waitBudgetSecs  = 120
	httpPort        = 8080
)

func defaultRooms() []core.RoomSpec {
	return []core.RoomSpec{
		{ID: "101", Floor: 1, RoomType: "standard", NightlyPrice: 100, Deposit: 200, InitialTemp: 32.0},
		{ID: "102", Floor: 1, RoomType: "standard", NightlyPrice: 125, Deposit: 200, InitialTemp: 28.0},
		{ID: "103", Floor: 1, RoomType: "deluxe", NightlyPrice: 150, Deposit: 300, InitialTemp: 30.0},
		{ID: "104", Floor: 2, RoomType: "deluxe", NightlyPrice: 200, Deposit: 300, InitialTemp: 29.0},
		{ID: "105", Floor: 2, RoomType: "suite", NightlyPrice: 250, Deposit: 500, InitialTemp: 35.0},
	}
}

func main() {
	logger.SetLevel(logger.InfoLevel)
	defer logger.Close()

	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	c := core.New(defaultRooms(), serviceCapacity, waitBudgetSecs, store)

	tickCtx, stopTicking := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go runTickLoop(tickCtx, &wg, c)

	srv := httpapi.NewServer(c)
	go func() {
		if err := srv.Start("0.0.0.0", httpPort); err != nil {
			logger.Error("http server: %v", err)
		}
	}()

	logger.Info("hotelacd running, plant serving %d rooms", len(c.RoomIDs()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	stopTicking()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("http server forced shutdown: %v", err)
	}

	logger.Info("hotelacd exited")
}

// runTickLoop advances the plant once per wall-clock second until ctx is
// canceled. It is the single caller of Core.Tick; Core's lock keeps each
// tick and every façade command serialized against each other.
func runTickLoop(ctx context.Context, wg *sync.WaitGroup, c *core.Core) {
	defer wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-ctx.Done():
			return
		}
	}
}
