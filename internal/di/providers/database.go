package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/librarydesk/librarydesk-server/internal/config"
	"github.com/librarydesk/librarydesk-server/internal/logger"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/postgres"
	"github.com/librarydesk/librarydesk-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the store selected by the database driver setting.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		db, err := postgres.Open(ctx, cfg.Database.URL, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverPostgres)
		return &StoreHandle{Store: db}, nil

	default:
		dbPath := filepath.Join(cfg.Data.BasePath, "librarydesk.db")
		db, err := sqlite.Open(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverSQLite, "path", dbPath)
		return &StoreHandle{Store: db}, nil
	}
}
