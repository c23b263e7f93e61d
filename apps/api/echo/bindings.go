package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

func intParam(ctx echo.Context, name string) (int, error) {
	return strconv.Atoi(ctx.Param(name))
}

// ReportPeriod narrows a report to one month of one year; both default to 0,
// meaning the whole history.
type ReportPeriod struct {
	Month int `query:"month" validate:"omitempty,min=1,max=12"`
	Year  int `query:"year" validate:"omitempty,min=2000"`
}

func (rp *ReportPeriod) Bind(ctx echo.Context) error {
	if err := ctx.Bind(rp); err != nil {
		return err
	}
	return core.Validate.Struct(rp)
}
