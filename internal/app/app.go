package app

import (
	"log/slog"

	"github.com/pulsepoll/pulsepoll/internal/auth"
	"github.com/pulsepoll/pulsepoll/internal/config"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/internal/services"
	"github.com/pulsepoll/pulsepoll/internal/storage"
	"github.com/pulsepoll/pulsepoll/internal/storage/sqlite"
)

// App wires the storage adapter, typed records and every service together.
type App struct {
	Store     storage.Store
	Auth      *auth.Service
	Lifecycle *services.Lifecycle
	Ballots   *services.Ballots
	Watcher   *services.Watcher
	Progress  *services.Progress
}

// New opens the durable device-local store and wires everything on top.
func New(log *slog.Logger, cfg *config.Config) *App {
	store, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		panic(err)
	}
	return NewWithStore(log, cfg, store)
}

// NewWithStore wires the application over a caller-provided store.
func NewWithStore(log *slog.Logger, cfg *config.Config, store storage.Store) *App {
	records := repo.New(store)

	lifecycle := services.NewLifecycle(log, records, records, cfg.Session.HistoryLimit)

	return &App{
		Store:     store,
		Auth:      auth.NewService(log, records),
		Lifecycle: lifecycle,
		Ballots:   services.NewBallots(log, records, records),
		Watcher:   services.NewWatcher(log, records, lifecycle, cfg.Session.SyncInterval),
		Progress:  services.NewProgress(log, records, cfg.Game.MoodJournalLimit),
	}
}

func (a *App) Stop() error {
	return a.Store.Close()
}
