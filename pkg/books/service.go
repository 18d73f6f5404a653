package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfscan/shelfscan/pkg/errcodes"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID      *int
	Barcode *string

	IncludeLoans bool
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	if book.Count == 0 {
		book.Count = 1
	}
	if err := book.MarshalKeywords(); err != nil {
		return err
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// UpsertByBarcode reconciles an enriched record against the catalog in a
// single transaction. An unseen barcode inserts a new row with count 1; a
// known barcode bumps the count and fills in any fields the stored row is
// still missing. Existing non-empty fields are never overwritten.
func (svc *Service) UpsertByBarcode(ctx context.Context, incoming *models.Book) (*models.Book, error) {
	var result *models.Book

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing := &models.Book{}
		err := tx.NewSelect().
			Model(existing).
			Where("b.barcode = ?", incoming.Barcode).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(err)
		}

		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now()
			incoming.CreatedAt = now
			incoming.UpdatedAt = now
			if incoming.Count == 0 {
				incoming.Count = 1
			}
			if err := incoming.MarshalKeywords(); err != nil {
				return err
			}

			_, err = tx.NewInsert().
				Model(incoming).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			result = incoming
			return nil
		}

		if err := existing.UnmarshalKeywords(); err != nil {
			return err
		}

		existing.Count++
		columns := []string{"count", "updated_at"}

		refresh := func(column string, dst *string, src string) {
			if *dst == "" && src != "" {
				*dst = src
				columns = append(columns, column)
			}
		}
		refresh("isbn", &existing.ISBN, incoming.ISBN)
		refresh("title", &existing.Title, incoming.Title)
		refresh("author", &existing.Author, incoming.Author)
		refresh("publisher", &existing.Publisher, incoming.Publisher)
		refresh("summary", &existing.Summary, incoming.Summary)

		if len(existing.KeywordsParsed) == 0 && len(incoming.KeywordsParsed) > 0 {
			existing.KeywordsParsed = incoming.KeywordsParsed
			if err := existing.MarshalKeywords(); err != nil {
				return err
			}
			columns = append(columns, "keywords")
		}

		existing.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(existing).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.Barcode != nil {
		q = q.Where("b.barcode = ?", *opts.Barcode)
	}
	if opts.IncludeLoans {
		q = q.Relation("Loans")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if err := book.UnmarshalKeywords(); err != nil {
		return nil, err
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.title ASC", "b.id ASC")

	// Search using LIKE across title, author, and keywords.
	if opts.Search != nil && *opts.Search != "" {
		search := "%" + strings.ToLower(*opts.Search) + "%"
		q = q.Where(
			"LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR LOWER(b.keywords) LIKE ?",
			search, search, search,
		)
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

	for _, book := range books {
		if err := book.UnmarshalKeywords(); err != nil {
			return nil, 0, err
		}
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	book.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	if err := book.MarshalKeywords(); err != nil {
		return err
	}

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteBook removes a book; its loans go with it via the foreign key
// cascade.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) error {
	result, err := svc.db.NewDelete().
		Model((*models.Book)(nil)).
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}
