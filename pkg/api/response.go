package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "site-entry/pkg/errors"
)

type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List       []T             `json:"list"`
	Pagination *PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// SuccessOne returns a single object.
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total uint64, page, limit int) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}

	if list == nil {
		list = make([]T, 0)
	}

	body := ListBody[T]{
		List: list,
		Pagination: &PaginationMeta{
			TotalCount: total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    body,
	})
}

// ToHttpError maps the error taxonomy onto HTTP status codes.
func ToHttpError(err error) *apperrors.HttpError {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	if vErr, ok := apperrors.IsValidation(err); ok {
		return apperrors.NewHttpError(http.StatusUnprocessableEntity, vErr.Error(), err, vErr.Report)
	}

	var inputErr *apperrors.InvalidInputError
	if errors.As(err, &inputErr) {
		return apperrors.NewHttpError(http.StatusBadRequest, inputErr.Message, nil, nil)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", e.Field(), e.Tag()))
		}
		return apperrors.NewHttpError(http.StatusBadRequest, "validation failed: "+strings.Join(msgs, "; "), nil, nil)
	}

	switch {
	case errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrInvalidSigningMethod),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrTokenNotYetValid),
		errors.Is(err, apperrors.ErrTokenIsNotAccess),
		errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrActorNotFoundInContext):
		return apperrors.NewHttpError(http.StatusUnauthorized, err.Error(), nil, nil)
	case errors.Is(err, apperrors.ErrForbidden):
		return apperrors.NewHttpError(http.StatusForbidden, apperrors.ErrForbidden.Error(), nil, nil)
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.NewHttpError(http.StatusNotFound, err.Error(), nil, nil)
	case errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrStaleState),
		errors.Is(err, apperrors.ErrConflict):
		return apperrors.NewHttpError(http.StatusConflict, err.Error(), nil, nil)
	case errors.Is(err, apperrors.ErrBadRequest):
		return apperrors.NewHttpError(http.StatusBadRequest, err.Error(), nil, nil)
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return apperrors.NewHttpError(echoErr.Code, fmt.Sprint(echoErr.Message), nil, nil)
	}

	return apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	httpErr := ToHttpError(err)

	if httpErr.Code >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("code", httpErr.Code), zap.Error(err))
	} else if errors.Is(err, apperrors.ErrDataIntegrity) {
		logger.Error("data integrity violation", zap.Error(err))
	}

	return c.JSON(httpErr.Code, Response[any]{
		Status:  false,
		Message: httpErr.Message,
		Body:    httpErr.Details,
	})
}
