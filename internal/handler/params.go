package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
)

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

func queryDate(c echo.Context, name string) (calendar.Date, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return calendar.Date{}, badRequest(name + " is required")
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, badRequest(name + " must be YYYY-MM-DD")
	}
	return d, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid " + name)
	}
	return n, nil
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(dst)
}
