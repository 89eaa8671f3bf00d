//go:build wireinject
// +build wireinject

package container

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/cleanup"
	domaincleanup "github.com/kartal788/dftest/internal/domain/cleanup"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/infrastructure/filehost"
	gormrepo "github.com/kartal788/dftest/internal/infrastructure/persistence/gorm"
	"github.com/kartal788/dftest/internal/ingest"
	"github.com/kartal788/dftest/pkg/config"
)

var infrastructureSet = wire.NewSet(
	provideMongoPool,
	provideShards,
	provideRouter,
	provideLedger,
	wire.Bind(new(domaincleanup.Repository), new(*gormrepo.CleanupJobRepository)),
	provideEventBus,
	provideMetrics,
	provideCache,
	provideMetadataResolver,
	provideProber,
	wire.Bind(new(ingest.Prober), new(*filehost.Prober)),
	provideDeleter,
)

var catalogSet = wire.NewSet(
	provideCleanupService,
	wire.Bind(new(media.CleanupScheduler), new(*cleanup.Service)),
	provideWorker,
	provideStore,
	provideIngest,
	provideQuery,
	provideStreams,
	provideHandler,
	provideScheduler,
)

// InitializeCatalog builds every catalog dependency.
func InitializeCatalog(ctx context.Context, cfg *config.CatalogConfig, logger *zap.Logger) (*CatalogContainer, func(), error) {
	wire.Build(
		infrastructureSet,
		catalogSet,
		wire.Struct(new(CatalogContainer), "*"),
	)
	return nil, nil, nil
}
