package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/davnau/medialens/internal/api"
	"github.com/davnau/medialens/internal/database"
	"github.com/davnau/medialens/internal/fetch"
	"github.com/davnau/medialens/internal/ffprobe"
	"github.com/davnau/medialens/internal/file"
	"github.com/davnau/medialens/internal/mediainfo"
	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// MediaLens is the top-level object for the server. It is responsible
// for connecting to the database, provisioning the probing tool, and
// composing the extraction pipeline behind the REST gateway.
type mediaLens struct {
	config MediaLensConfig
}

func New(config MediaLensConfig) *mediaLens {
	log.Emit(logger.DEBUG, "Bootstrapping MediaLens services using config: %#v\n", config)
	return &mediaLens{config: config}
}

// Run brings up the database connection and all services, blocking
// until the provided context is cancelled or a service crashes.
func (lens *mediaLens) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	db := database.New()
	if err := db.Connect(lens.config.Database); err != nil {
		return err
	}

	provisioner := ffprobe.NewProvisioner(lens.config.Provision)

	// Warm the provisioner off the request path; the first metadata
	// request should not pay for a binary download. Failure here is
	// fine, extraction re-checks lazily.
	go provisioner.Ensure(ctx)

	infoService := mediainfo.New(
		lens.config.MediaInfo,
		db.GetSqlxDb(),
		file.NewStore(),
		provisioner,
		fetch.NewHeadFetcher(lens.config.Fetch),
		ffprobe.NewInvoker(lens.config.Probe),
	)

	fileService := file.NewService(db, file.NewStore())
	restGateway := api.NewRestGateway(&lens.config.Api, fileService, infoService)

	wg := &sync.WaitGroup{}
	lens.spawnAsyncService(ctx, wg, restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "MediaLens services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService runs the provided service as its own go-routine,
// keeping the service waitgroup updated and routing panics/errors to
// the crash handler.
func (lens *mediaLens) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				crashHandler(serviceLabel, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crashHandler(serviceLabel, err)
		}
	}()
}
