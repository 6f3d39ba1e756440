package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/school"
	emailsvc "github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/erpapi"
	logsvc "github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/mirror"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rl := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer rl.Close()
	logger = rl

	// set up the local mirror
	store, err := mirror.Open(context.Background(), conf.Mirror)
	errAndDie(err)
	mir := mirror.New(store, logger)
	defer mir.Close()

	client, err := erpapi.NewClient(conf.API, logger)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		api:    client,
		mirror: mir,
		mutations: mutation.NewCoordinator(mutation.Options{
			API:                 client,
			Mirror:              mir,
			Logger:              logger,
			Validate:            school.NewValidator().Validate,
			RemoteSubjectDelete: conf.Mutation.RemoteSubjectDelete,
			CompensateRename:    conf.Mutation.CompensateRename,
			Alerts:              emailsvc.New(conf, log.New(os.Stderr, "MAIL : ", log.LstdFlags), logger),
			AlertRecipients:     conf.AlertAddresses(),
		}),
		formatter: format.Formatter{Layout: conf.DateLayout},
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		mir.Close()
		rl.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
