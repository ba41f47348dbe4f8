package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moneyboard/moneyboard/internal/config"
	"github.com/moneyboard/moneyboard/internal/event_bus"
	"github.com/moneyboard/moneyboard/internal/utils"
	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/catalog"
	"github.com/moneyboard/moneyboard/pkg/form"
	"github.com/moneyboard/moneyboard/pkg/session"
	"github.com/moneyboard/moneyboard/pkg/snapshot"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	BackendClient backend.Client

	SnapshotRepo      snapshot.Repository
	SnapshotPersister *snapshot.Persister
	SnapshotHandler   *snapshot.Handler

	Sessions *session.Manager

	CatalogService *catalog.ServiceImpl
	CatalogHandler *catalog.Handler

	FormService *form.Service
	FormHandler *form.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
// db is nil when cached entities are not persisted.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, session.Token)
	var repo snapshot.Repository
	if db != nil {
		repo = snapshot.NewRepository(db)
	}
	return wireDependencies(client, repo, cfg)
}

func wireDependencies(client backend.Client, repo snapshot.Repository, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.BackendClient = client

	var hydrator session.Hydrator
	if repo != nil {
		deps.SnapshotRepo = repo
		deps.SnapshotPersister = snapshot.NewPersister(repo)
		deps.SnapshotPersister.Subscribe(deps.EventBus)
		hydrator = snapshot.NewLoader(repo)
	}
	deps.Sessions = session.NewManager(deps.EventBus, hydrator)
	deps.SnapshotHandler = snapshot.NewHandler(deps.Sessions, deps.SnapshotRepo, deps.SnapshotPersister)

	deps.CatalogService = catalog.NewService(deps.BackendClient)
	deps.CatalogHandler = catalog.NewHandler(deps.CatalogService)

	deps.FormService = form.NewService(deps.CatalogService, deps.BackendClient, deps.Clock, cfg.Picker.Debounce)
	deps.FormHandler = form.NewHandler(deps.FormService)

	return deps
}
