package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/barcamp-slotplanner/internal/application"
	"github.com/example/barcamp-slotplanner/internal/config"
	"github.com/example/barcamp-slotplanner/internal/grid"
	httptransport "github.com/example/barcamp-slotplanner/internal/http"
	"github.com/example/barcamp-slotplanner/internal/persistence"
	"github.com/example/barcamp-slotplanner/internal/persistence/sqlite"
	"github.com/example/barcamp-slotplanner/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	event, err := config.LoadEvent(cfg.EventFile)
	if err != nil {
		logger.Error("failed to load event layout", "error", err, "path", cfg.EventFile)
		os.Exit(1)
	}

	g, err := grid.New(event.RoomSchedules())
	if err != nil {
		logger.Error("failed to build scheduling grid", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	now := time.Now
	plan, err := restorePlan(ctx, logger, storage, g)
	if err != nil {
		logger.Error("failed to restore schedule snapshot", "error", err)
		os.Exit(1)
	}

	store := newSnapshotStoreAdapter(storage, now)
	planner := application.NewPlannerServiceWithLogger(plan, store, uuid.NewString, now, logger)
	auth := application.NewAuthServiceWithLogger(cfg.AdminPasswordHash, nil, uuid.NewString, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(auth, logger),
		Sessions:     httptransport.NewSessionHandler(planner, logger),
		Placements:   httptransport.NewPlacementHandler(planner, logger),
		Schedule:     httptransport.NewScheduleHandler(planner, logger),
		Rooms:        httptransport.NewRoomHandler(planner, logger),
		AdminOnly:    httptransport.RequireSession(auth, logger),
		LoginLimiter: httptransport.RateLimit(cfg.LoginRatePerMin, cfg.LoginRateBurst, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("slot planner API listening", "addr", server.Addr, "event", event.Name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// restorePlan loads the most recent snapshot from storage and rebuilds the
// in-memory plan against the configured grid. A missing snapshot means a
// fresh event; anything else that fails to restore is fatal rather than
// silently dropped.
func restorePlan(ctx context.Context, logger *slog.Logger, storage persistence.SnapshotStore, g *grid.Grid) (*scheduler.Plan, error) {
	stored, err := storage.Load(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.Info("no snapshot found, starting with an empty plan")
			return scheduler.NewPlan(g), nil
		}
		return nil, err
	}

	plan, err := scheduler.RestorePlan(g, toSchedulerSnapshot(stored))
	if err != nil {
		return nil, err
	}
	logger.Info("schedule snapshot restored", "sessions", len(stored.Sessions), "saved_at", stored.SavedAt)
	return plan, nil
}

// snapshotStoreAdapter bridges the planner's snapshot writes to the SQLite
// store, stamping each snapshot with the wall clock at commit time.
type snapshotStoreAdapter struct {
	store persistence.SnapshotStore
	now   func() time.Time
}

func newSnapshotStoreAdapter(store persistence.SnapshotStore, now func() time.Time) *snapshotStoreAdapter {
	if now == nil {
		now = time.Now
	}
	return &snapshotStoreAdapter{store: store, now: now}
}

func (a *snapshotStoreAdapter) Save(ctx context.Context, snapshot scheduler.Snapshot) error {
	return a.store.Save(ctx, toPersistenceSnapshot(snapshot, a.now()))
}

func toPersistenceSnapshot(snapshot scheduler.Snapshot, savedAt time.Time) persistence.Snapshot {
	sessions := make([]persistence.Session, 0, len(snapshot.Sessions))
	for _, record := range snapshot.Sessions {
		session := persistence.Session{
			ID:       record.ID,
			Title:    record.Title,
			Speakers: append([]string(nil), record.Speakers...),
			Duration: record.Duration,
			State:    string(record.State),
		}
		if record.Placement != nil {
			session.Placement = &persistence.Placement{
				RoomID:      record.Placement.RoomID,
				StartSlotID: record.Placement.StartSlotID,
			}
		}
		sessions = append(sessions, session)
	}
	return persistence.Snapshot{SavedAt: savedAt.UTC(), Sessions: sessions}
}

func toSchedulerSnapshot(snapshot persistence.Snapshot) scheduler.Snapshot {
	records := make([]scheduler.SessionRecord, 0, len(snapshot.Sessions))
	for _, session := range snapshot.Sessions {
		record := scheduler.SessionRecord{
			ID:       session.ID,
			Title:    session.Title,
			Speakers: append([]string(nil), session.Speakers...),
			Duration: session.Duration,
			State:    scheduler.State(session.State),
		}
		if session.Placement != nil {
			record.Placement = &scheduler.PlacementRecord{
				RoomID:      session.Placement.RoomID,
				StartSlotID: session.Placement.StartSlotID,
			}
		}
		records = append(records, record)
	}
	return scheduler.Snapshot{Sessions: records}
}
