package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shelfscan/shelfscan/pkg/books"
	"github.com/shelfscan/shelfscan/pkg/config"
	"github.com/shelfscan/shelfscan/pkg/database"
	"github.com/shelfscan/shelfscan/pkg/migrations"
	"github.com/shelfscan/shelfscan/pkg/pipeline"
	"github.com/shelfscan/shelfscan/pkg/providers"
	"github.com/shelfscan/shelfscan/pkg/scanner"
	"github.com/shelfscan/shelfscan/pkg/server"
	"github.com/shelfscan/shelfscan/pkg/version"
	"github.com/shelfscan/shelfscan/pkg/worker"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting shelfscan", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	registry := providers.NewRegistry(cfg)
	p := pipeline.New(cfg, registry, books.NewService(db))

	wrkr := worker.New(cfg, db, p)

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"port": listener.Addr().(*net.TCPAddr).Port})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started")

	if cfg.ScanInputEnabled {
		// Barcode readers present as keyboards, so stdin is the scan
		// feed when the server runs attached to one.
		go feedScans(cfg, scanner.NewService(db), log)
	}

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// feedScans pushes stdin through the scan state machine and queues every
// validated code.
func feedScans(cfg *config.Config, scanService *scanner.Service, log logger.Logger) {
	machine := scanner.NewMachine(cfg.ScannerIdleTimeout, func(event scanner.ScanEvent) {
		_, err := scanService.Enqueue(context.Background(), event.Code)
		if err != nil {
			log.Err(err).Error("enqueue scan error")
			return
		}
		log.Info("scan queued", logger.Data{"code": event.Code})
	})

	reader := bufio.NewReader(os.Stdin)
	for {
		ch, _, err := reader.ReadRune()
		if err != nil {
			log.Info("scan input closed")
			return
		}
		machine.Input(ch)
	}
}
