// Package container assembles the catalog's dependency graph.
package container

import (
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/cleanup"
	"github.com/kartal788/dftest/internal/handler"
	gormrepo "github.com/kartal788/dftest/internal/infrastructure/persistence/gorm"
	"github.com/kartal788/dftest/internal/infrastructure/persistence/mongodb"
	"github.com/kartal788/dftest/internal/ingest"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/internal/scheduler"
	"github.com/kartal788/dftest/internal/store"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// CatalogContainer holds the wired catalog dependencies.
type CatalogContainer struct {
	Config    *config.CatalogConfig
	Logger    *zap.Logger
	Pool      *mongodb.Pool
	Store     *store.Store
	Jobs      *gormrepo.CleanupJobRepository
	Bus       interfaces.EventBus
	Metrics   *metrics.Metrics
	Cleanup   *cleanup.Service
	Worker    *cleanup.Worker
	Ingest    *ingest.Service
	Handler   *handler.Handler
	Scheduler *scheduler.Scheduler
}
