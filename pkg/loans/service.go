package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfscan/shelfscan/pkg/errcodes"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLoanOptions struct {
	ID *int

	IncludeBook bool
}

type ListLoansOptions struct {
	Limit       *int
	Offset      *int
	BookID      *int
	Outstanding *bool

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateLoan checks out one copy of a book. The availability check and the
// count decrement run in one transaction so two concurrent checkouts can't
// both take the last copy.
func (svc *Service) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().
			Model(book).
			Where("b.id = ?", loan.BookID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		if book.Count == 0 {
			return errcodes.OutOfStock(book.Title)
		}

		now := time.Now()
		if loan.LoanDate.IsZero() {
			loan.LoanDate = now
		}
		loan.CreatedAt = now
		loan.UpdatedAt = now

		_, err = tx.NewInsert().
			Model(loan).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("count = count - 1").
			Set("updated_at = ?", now).
			Where("id = ?", loan.BookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// ReturnLoan closes out a loan and puts the copy back on the shelf. Returning
// a loan twice is rejected so the count can't drift upward.
func (svc *Service) ReturnLoan(ctx context.Context, loanID int) (*models.Loan, error) {
	loan := &models.Loan{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(loan).
			Where("l.id = ?", loanID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Loan")
			}
			return errors.WithStack(err)
		}

		if loan.Returned() {
			return errcodes.ValidationError("Loan has already been returned.")
		}

		now := time.Now()
		loan.ReturnDate = &now
		loan.UpdatedAt = now

		_, err = tx.NewUpdate().
			Model(loan).
			Column("return_date", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("count = count + 1").
			Set("updated_at = ?", now).
			Where("id = ?", loan.BookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

func (svc *Service) RetrieveLoan(ctx context.Context, opts RetrieveLoanOptions) (*models.Loan, error) {
	loan := &models.Loan{}

	q := svc.db.
		NewSelect().
		Model(loan)

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}
	if opts.IncludeBook {
		q = q.Relation("Book")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Loan")
		}
		return nil, errors.WithStack(err)
	}

	return loan, nil
}

func (svc *Service) ListLoans(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, error) {
	l, _, err := svc.listLoansWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLoansWithTotal(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, int, error) {
	opts.includeTotal = true
	return svc.listLoansWithTotal(ctx, opts)
}

func (svc *Service) listLoansWithTotal(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, int, error) {
	loans := []*models.Loan{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&loans).
		Relation("Book").
		Order("l.loan_date DESC", "l.id DESC")

	if opts.BookID != nil {
		q = q.Where("l.book_id = ?", *opts.BookID)
	}
	if opts.Outstanding != nil {
		if *opts.Outstanding {
			q = q.Where("l.return_date IS NULL")
		} else {
			q = q.Where("l.return_date IS NOT NULL")
		}
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

	return loans, total, nil
}
