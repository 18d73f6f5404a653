package scanner

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfscan/shelfscan/pkg/errcodes"
	"github.com/shelfscan/shelfscan/pkg/isbn"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveScanOptions struct {
	ID *int

	IncludeBook bool
}

type ListScansOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string

	includeTotal bool
}

type UpdateScanOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Enqueue validates a code and appends it to the scan queue. Validation
// happens here so a typo comes straight back to the caller instead of dying
// later in the worker.
func (svc *Service) Enqueue(ctx context.Context, code string) (*models.Scan, error) {
	id, err := isbn.Resolve(code)
	if err != nil {
		return nil, err
	}

	scan := &models.Scan{
		Code:   id.Code,
		Status: models.ScanStatusPending,
	}
	err = svc.CreateScan(ctx, scan)
	if err != nil {
		return nil, err
	}
	return scan, nil
}

func (svc *Service) CreateScan(ctx context.Context, scan *models.Scan) error {
	now := time.Now()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	scan.UpdatedAt = scan.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(scan).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveScan(ctx context.Context, opts RetrieveScanOptions) (*models.Scan, error) {
	scan := &models.Scan{}

	q := svc.db.
		NewSelect().
		Model(scan)

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}
	if opts.IncludeBook {
		q = q.Relation("Book")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Scan")
		}
		return nil, errors.WithStack(err)
	}

	return scan, nil
}

func (svc *Service) ListScans(ctx context.Context, opts ListScansOptions) ([]*models.Scan, error) {
	s, _, err := svc.listScansWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListScansWithTotal(ctx context.Context, opts ListScansOptions) ([]*models.Scan, int, error) {
	opts.includeTotal = true
	return svc.listScansWithTotal(ctx, opts)
}

func (svc *Service) listScansWithTotal(ctx context.Context, opts ListScansOptions) ([]*models.Scan, int, error) {
	scans := []*models.Scan{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&scans).
		Order("s.created_at DESC", "s.id DESC")

	if len(opts.Statuses) > 0 {
		q = q.Where("s.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return scans, total, nil
}

// NextPendingScan claims the oldest pending scan for the given process ID.
// Returns nil when the queue is empty.
func (svc *Service) NextPendingScan(ctx context.Context, processID string) (*models.Scan, error) {
	scan := &models.Scan{}

	err := svc.db.
		NewSelect().
		Model(scan).
		Where("s.status = ?", models.ScanStatusPending).
		Order("s.created_at ASC", "s.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	scan.Status = models.ScanStatusInProgress
	scan.ProcessID = &processID
	err = svc.UpdateScan(ctx, scan, UpdateScanOptions{Columns: []string{"status", "process_id"}})
	if err != nil {
		return nil, err
	}

	return scan, nil
}

func (svc *Service) UpdateScan(ctx context.Context, scan *models.Scan, opts UpdateScanOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	scan.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(scan).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Scan")
		}
		return errors.WithStack(err)
	}
	return nil
}
