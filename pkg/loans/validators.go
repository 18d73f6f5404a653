package loans

type ListLoansQuery struct {
	Limit       int   `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset      int   `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID      *int  `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	Outstanding *bool `query:"outstanding" json:"outstanding,omitempty"`
}

type CreateLoanPayload struct {
	BookID   int    `json:"book_id" validate:"required,min=1"`
	Borrower string `json:"borrower" mod:"trim" validate:"required,min=1,max=200"`
	LoanDate string `json:"loan_date,omitempty" validate:"date"`
}
