package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoweb "github.com/trezcool/masomo-console/apps/web/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/school"
	emailsvc "github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/erpapi"
	logsvc "github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/mirror"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	mirrorLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "MIRROR : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up the local mirror
	store, err := mirror.Open(context.Background(), conf.Mirror)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening mirror store: %v", err), err)
	}
	mir := mirror.New(store, mirrorLogger)
	defer func() {
		if err = mir.Close(); err != nil {
			mirrorLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	client, err := erpapi.NewClient(conf.API, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up API client: %v", err), err)
	}
	mailSvc := emailsvc.New(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if _, err = school.Catalogue(); err != nil {
		logger.Fatal(fmt.Sprintf("loading descriptor catalogue: %v", err), err)
	}

	coord := mutation.NewCoordinator(mutation.Options{
		API:                 client,
		Mirror:              mir,
		Logger:              logger,
		Validate:            school.NewValidator().Validate,
		RemoteSubjectDelete: conf.Mutation.RemoteSubjectDelete,
		CompensateRename:    conf.Mutation.CompensateRename,
		Alerts:              mailSvc,
		AlertRecipients:     conf.AlertAddresses(),
	})

	// =========================================================================
	// Start Web Service

	server := echoweb.NewServer(echoweb.ServerDeps{
		Conf:      conf,
		Logger:    logger,
		Backend:   client,
		Mirror:    mir,
		Mutations: coord,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
