package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan is a checkout of one copy of a book. Creating a loan decrements the
// book's count; returning it sets ReturnDate and increments the count back.
// Loans are deleted with their book, never independently.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	BookID     int        `bun:",nullzero" json:"book_id"`
	Book       *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	Borrower   string     `bun:",nullzero" json:"borrower"`
	LoanDate   time.Time  `json:"loan_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Returned reports whether the loan has been returned.
func (l *Loan) Returned() bool {
	return l.ReturnDate != nil
}
