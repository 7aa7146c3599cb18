// internal/app/app.go

package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"backend/internal/billing"
	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/monitor"
	"backend/internal/scheduler"
	"backend/internal/types"
	"backend/server"
)

// App wires every explicitly-owned component together: no package-level
// singletons, matching the teacher's internal/app.App but generalized to
// the scheduler's new constructor shape.
type App struct {
	cfg      *config.Config
	eventBus *events.EventBus
	sched    *scheduler.Scheduler
	billing  *billing.Service
	mon      *monitor.Monitor
	httpSrv  *http.Server
}

func New(cfg *config.Config) (*App, error) {
	gormDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	mode := types.ModeCool
	if err := db.SeedRooms(gormDB, cfg, mode); err != nil {
		return nil, fmt.Errorf("seed rooms: %w", err)
	}

	roomRepo := db.NewRoomRepository(gormDB)
	detailRepo := db.NewDetailRepository(gormDB)
	bus := events.NewEventBus()

	sched := scheduler.New(cfg, roomRepo, detailRepo, bus)
	if err := sched.LoadRooms(mode); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	billSvc := billing.NewService(detailRepo)
	mon := monitor.New(sched, bus, 5*time.Second, prometheus.DefaultRegisterer)

	return &App{cfg: cfg, eventBus: bus, sched: sched, billing: billSvc, mon: mon}, nil
}

// Start begins the scheduler tick loop, the monitor, and the HTTP server.
func (a *App) Start(port int) error {
	a.sched.Run()
	a.mon.Start()

	router := server.NewRouter(a.sched, a.cfg, a.billing)
	a.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		logger.Info("http server listening on %s", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts everything down within the given context's
// deadline.
func (a *App) Stop(ctx context.Context) error {
	a.mon.Stop()
	a.sched.Stop()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}
	return nil
}
