package loans

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfscan/shelfscan/pkg/errcodes"
	"github.com/shelfscan/shelfscan/pkg/models"
)

type handler struct {
	loanService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	loan := &models.Loan{
		BookID:   params.BookID,
		Borrower: params.Borrower,
	}
	if params.LoanDate != "" {
		loanDate, err := time.Parse("2006-01-02", params.LoanDate)
		if err != nil {
			return errcodes.ValidationError("loan_date must use the format YYYY-MM-DD.")
		}
		loan.LoanDate = loanDate
	}

	err := h.loanService.CreateLoan(ctx, loan)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, loan))
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.ReturnLoan(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.RetrieveLoan(ctx, RetrieveLoanOptions{
		ID:          &id,
		IncludeBook: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	loans, total, err := h.loanService.ListLoansWithTotal(ctx, ListLoansOptions{
		Limit:       &params.Limit,
		Offset:      &params.Offset,
		BookID:      params.BookID,
		Outstanding: params.Outstanding,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"loans": loans,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}
