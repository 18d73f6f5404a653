// Package worker drains the scan queue. Exactly one processing goroutine
// runs: a scan is enriched to completion before the next one is claimed, so
// provider traffic stays sequential and the catalog sees one writer.
package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfscan/shelfscan/pkg/config"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/shelfscan/shelfscan/pkg/pipeline"
	"github.com/shelfscan/shelfscan/pkg/scanner"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

type Worker struct {
	config *config.Config
	log    logger.Logger

	scanService *scanner.Service
	pipeline    *pipeline.Pipeline

	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB, p *pipeline.Pipeline) *Worker {
	return &Worker{
		config: cfg,
		log:    logger.New(),

		scanService: scanner.NewService(db),
		pipeline:    p,

		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go w.run()
}

func (w *Worker) run() {
	timer := time.NewTimer(w.config.WorkerPollInterval)

	for {
		select {
		case <-w.shutdown:
			w.done <- struct{}{}
			return
		case <-timer.C:
			// Keep claiming until the queue is empty, then go back to
			// polling.
			for {
				scan, err := w.scanService.NextPendingScan(context.Background(), processID)
				if err != nil {
					w.log.Err(err).Error("claim scan error")
					break
				}
				if scan == nil {
					break
				}
				w.processScan(scan)

				select {
				case <-w.shutdown:
					w.done <- struct{}{}
					return
				default:
				}
			}
			timer.Reset(w.config.WorkerPollInterval)
		}
	}
}

func (w *Worker) processScan(scan *models.Scan) {
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"scan_id": scan.ID, "code": scan.Code, "process_id": processID})
	ctx := log.WithContext(context.Background())

	book, err := w.pipeline.Enrich(ctx, scan.Code)
	if err != nil {
		log.Err(err).Error("enrich error")

		msg := err.Error()
		scan.Status = models.ScanStatusFailed
		scan.Error = &msg
		err = w.scanService.UpdateScan(ctx, scan, scanner.UpdateScanOptions{
			Columns: []string{"status", "error"},
		})
		if err != nil {
			log.Err(err).Error("update scan error")
		}
		return
	}

	scan.Status = models.ScanStatusCompleted
	scan.BookID = &book.ID
	err = w.scanService.UpdateScan(ctx, scan, scanner.UpdateScanOptions{
		Columns: []string{"status", "book_id"},
	})
	if err != nil {
		log.Err(err).Error("update scan error")
		return
	}

	log.Info("scan completed", logger.Data{"book_id": book.ID, "count": book.Count})
}

// Shutdown waits for the in-flight scan to finish.
func (w *Worker) Shutdown() {
	close(w.shutdown)
	<-w.done
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
