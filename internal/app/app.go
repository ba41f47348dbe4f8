package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moneyboard/moneyboard/internal/config"
	"github.com/moneyboard/moneyboard/internal/database"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	router *mux.Router
	srv    *http.Server
	deps   *Dependencies
	db     *pgxpool.Pool
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	// DB + migrations, only when cached entities outlive the process
	var db *pgxpool.Pool
	if cfg.Cache.Persist {
		if err := database.Migrate(cfg.Database); err != nil {
			return nil, err
		}
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("Entity cache persistence disabled")
	}

	r := mux.NewRouter()

	// Build dependencies (services, handlers...)
	deps := BuildDependencies(db, cfg)

	// Middleware chain
	SetupMiddleware(r, deps)

	// Routes
	RegisterRoutes(r, deps)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, router: r, srv: srv, deps: deps, db: db}, nil
}

// Run starts the HTTP server and the draft sweeper and blocks until SIGINT or
// SIGTERM, then drains requests and flushes pending snapshots.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persisted := make(chan struct{})
	if a.deps.SnapshotPersister != nil {
		go func() {
			defer close(persisted)
			a.deps.SnapshotPersister.Run(ctx)
		}()
	} else {
		close(persisted)
	}

	stopSweeper := a.deps.FormService.StartSweeper(a.cfg.Forms.TTL, a.cfg.Forms.Sweep)
	defer stopSweeper()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = a.srv.Shutdown(shutdownCtx)
	}

	<-persisted
	if a.db != nil {
		a.db.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
