package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "field-crm/pkg/errors"
)

// bindAndValidate decodes the request body into dst and runs the registered validator.
func bindAndValidate(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil)
	}
	if err := ctx.Validate(dst); err != nil {
		return err
	}
	return nil
}
