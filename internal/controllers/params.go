package controllers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/utils"
)

func parseIDParam(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError("invalid %s", name)
	}
	return id, nil
}

// bindAndValidate decodes the body into dst and runs the registered
// validator over it.
func bindAndValidate(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		return apperrors.NewInvalidInputError("malformed request body")
	}
	return ctx.Validate(dst)
}

func queryInt64(ctx echo.Context, key string) (*int64, error) {
	v, err := utils.ParseInt64Param(ctx.QueryParams(), key)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("query parameter %s must be an integer", key)
	}
	return v, nil
}
