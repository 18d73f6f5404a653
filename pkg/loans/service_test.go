package loans

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shelfscan/shelfscan/pkg/errcodes"
	"github.com/shelfscan/shelfscan/pkg/migrations"
	"github.com/shelfscan/shelfscan/pkg/models"
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

func createBook(t *testing.T, db *bun.DB, count int) *models.Book {
	t.Helper()

	book := &models.Book{
		Barcode:  "9780134685991",
		Title:    "Effective Java",
		Keywords: "[]",
		Count:    count,
	}
	_, err := db.NewInsert().Model(book).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return book
}

func bookCount(t *testing.T, db *bun.DB, bookID int) int {
	t.Helper()

	book := &models.Book{}
	err := db.NewSelect().Model(book).Where("b.id = ?", bookID).Scan(context.Background())
	require.NoError(t, err)
	return book.Count
}

func TestCreateLoan(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 2)

	loan := &models.Loan{BookID: book.ID, Borrower: "Sam"}
	err := svc.CreateLoan(ctx, loan)
	require.NoError(t, err)

	assert.NotZero(t, loan.ID)
	assert.False(t, loan.LoanDate.IsZero())
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, 1, bookCount(t, db, book.ID))
}

func TestCreateLoan_OutOfStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 1)

	err := svc.CreateLoan(ctx, &models.Loan{BookID: book.ID, Borrower: "Sam"})
	require.NoError(t, err)

	// The only copy is out, so the second checkout is refused and the
	// count stays put.
	err = svc.CreateLoan(ctx, &models.Loan{BookID: book.ID, Borrower: "Alex"})
	assert.ErrorIs(t, err, errcodes.OutOfStock("Effective Java"))
	assert.Equal(t, 0, bookCount(t, db, book.ID))

	total, err := db.NewSelect().Model((*models.Loan)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreateLoan_BookNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	err := svc.CreateLoan(ctx, &models.Loan{BookID: 999, Borrower: "Sam"})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestReturnLoan(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 1)

	loan := &models.Loan{BookID: book.ID, Borrower: "Sam"}
	err := svc.CreateLoan(ctx, loan)
	require.NoError(t, err)
	require.Equal(t, 0, bookCount(t, db, book.ID))

	returned, err := svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	assert.True(t, returned.Returned())
	assert.Equal(t, 1, bookCount(t, db, book.ID))
}

func TestReturnLoan_AlreadyReturned(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 1)

	loan := &models.Loan{BookID: book.ID, Borrower: "Sam"}
	err := svc.CreateLoan(ctx, loan)
	require.NoError(t, err)

	_, err = svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	// A double return would inflate the count past the owned copies.
	_, err = svc.ReturnLoan(ctx, loan.ID)
	require.Error(t, err)
	assert.Equal(t, 1, bookCount(t, db, book.ID))
}

func TestLoanReturnRoundTripPreservesCount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 3)

	for i := 0; i < 5; i++ {
		loan := &models.Loan{BookID: book.ID, Borrower: "Sam"}
		err := svc.CreateLoan(ctx, loan)
		require.NoError(t, err)

		_, err = svc.ReturnLoan(ctx, loan.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, bookCount(t, db, book.ID))
}

func TestListLoans_Outstanding(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := createBook(t, db, 2)

	open := &models.Loan{BookID: book.ID, Borrower: "Sam"}
	require.NoError(t, svc.CreateLoan(ctx, open))

	closed := &models.Loan{BookID: book.ID, Borrower: "Alex"}
	require.NoError(t, svc.CreateLoan(ctx, closed))
	_, err := svc.ReturnLoan(ctx, closed.ID)
	require.NoError(t, err)

	outstanding := true
	loans, err := svc.ListLoans(ctx, ListLoansOptions{Outstanding: &outstanding})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Sam", loans[0].Borrower)
	require.NotNil(t, loans[0].Book)
	assert.Equal(t, "Effective Java", loans[0].Book.Title)

	outstanding = false
	loans, err = svc.ListLoans(ctx, ListLoansOptions{Outstanding: &outstanding})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Alex", loans[0].Borrower)
}
