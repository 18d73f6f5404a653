package scanner

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfscan/shelfscan/pkg/errcodes"
)

type handler struct {
	scanService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateScanPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	scan, err := h.scanService.Enqueue(ctx, params.Code)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, scan))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Scan")
	}

	scan, err := h.scanService.RetrieveScan(ctx, RetrieveScanOptions{
		ID:          &id,
		IncludeBook: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, scan))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListScansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	scans, total, err := h.scanService.ListScansWithTotal(ctx, ListScansOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Statuses: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"scans": scans,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}
