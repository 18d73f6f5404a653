package worker

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shelfscan/shelfscan/pkg/books"
	"github.com/shelfscan/shelfscan/pkg/config"
	"github.com/shelfscan/shelfscan/pkg/isbn"
	"github.com/shelfscan/shelfscan/pkg/migrations"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/shelfscan/shelfscan/pkg/pipeline"
	"github.com/shelfscan/shelfscan/pkg/providers"
	"github.com/shelfscan/shelfscan/pkg/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestWorker(t *testing.T, db *bun.DB, googleBooksBody string) *Worker {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)
	cfg.WorkerPollInterval = 10 * time.Millisecond

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(googleBooksBody))
	}))
	t.Cleanup(srv.Close)

	registry := providers.Registry{
		isbn.ProviderGoogleBooks: providers.NewGoogleBooks(srv.URL, srv.Client(), time.Millisecond),
	}

	p := pipeline.New(cfg, registry, books.NewService(db))
	return New(cfg, db, p)
}

func waitForStatus(t *testing.T, db *bun.DB, scanID int, status string) *models.Scan {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		scan := &models.Scan{}
		err := db.NewSelect().Model(scan).Where("s.id = ?", scanID).Scan(context.Background())
		require.NoError(t, err)
		if scan.Status == status {
			return scan
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scan %d never reached status %s", scanID, status)
	return nil
}

func TestWorkerProcessesScan(t *testing.T) {
	db := newTestDB(t)
	scanService := scanner.NewService(db)

	w := newTestWorker(t, db, `{
		"totalItems": 1,
		"items": [{"volumeInfo": {"title": "Effective Java", "authors": ["Joshua Bloch"]}}]
	}`)
	w.Start()
	defer w.Shutdown()

	scan, err := scanService.Enqueue(context.Background(), "9780134685991")
	require.NoError(t, err)

	done := waitForStatus(t, db, scan.ID, models.ScanStatusCompleted)
	require.NotNil(t, done.BookID)
	require.NotNil(t, done.ProcessID)

	book := &models.Book{}
	err = db.NewSelect().Model(book).Where("b.id = ?", *done.BookID).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Effective Java", book.Title)
	assert.Equal(t, 1, book.Count)
}

func TestWorkerProcessesQueueInOrder(t *testing.T) {
	db := newTestDB(t)
	scanService := scanner.NewService(db)

	w := newTestWorker(t, db, `{"totalItems": 0}`)

	first, err := scanService.Enqueue(context.Background(), "9780134685991")
	require.NoError(t, err)
	second, err := scanService.Enqueue(context.Background(), "9780134685991")
	require.NoError(t, err)

	w.Start()
	defer w.Shutdown()

	waitForStatus(t, db, first.ID, models.ScanStatusCompleted)
	done := waitForStatus(t, db, second.ID, models.ScanStatusCompleted)

	// Both scans landed on the same book row; the re-scan bumped the count.
	require.NotNil(t, done.BookID)
	book := &models.Book{}
	err = db.NewSelect().Model(book).Where("b.id = ?", *done.BookID).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, book.Count)
}

func TestWorkerShutdownIsClean(t *testing.T) {
	db := newTestDB(t)

	w := newTestWorker(t, db, `{"totalItems": 0}`)
	w.Start()

	done := make(chan struct{})
	go func() {
		w.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}
