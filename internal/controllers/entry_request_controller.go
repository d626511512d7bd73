package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"site-entry/internal/dto"
	"site-entry/internal/entities"
	"site-entry/internal/services"
	"site-entry/pkg/api"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/utils"
)

type EntryRequestController struct {
	entryRequestService services.EntryRequestServiceInterface
	timeout             time.Duration
	logger              *zap.Logger
}

func NewEntryRequestController(
	entryRequestService services.EntryRequestServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *EntryRequestController {
	return &EntryRequestController{
		entryRequestService: entryRequestService,
		timeout:             timeout,
		logger:              logger,
	}
}

func (c *EntryRequestController) Create(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	var d dto.CreateEntryRequestDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.entryRequestService.Create(reqCtx, d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "entry request created", res)
}

func (c *EntryRequestController) List(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	q, page, err := parseEntryRequestQuery(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	list, total, err := c.entryRequestService.List(reqCtx, q)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "entry requests fetched", list, total, int(page), int(q.Limit))
}

func parseEntryRequestQuery(ctx echo.Context) (dto.EntryRequestListQuery, uint64, error) {
	var q dto.EntryRequestListQuery
	limit, offset, page := utils.ParsePaginationParams(ctx.QueryParams())
	q.Limit, q.Offset = limit, offset

	if raw := ctx.QueryParam("status"); raw != "" {
		status, err := entities.ParseEntryRequestStatus(raw)
		if err != nil {
			return q, 0, apperrors.NewInvalidInputError("unknown status %q", raw)
		}
		q.Status = &status
	}

	var err error
	if q.OwnerCompanyID, err = queryInt64(ctx, "owner_company_id"); err != nil {
		return q, 0, err
	}
	if q.TargetBpCompanyID, err = queryInt64(ctx, "target_bp_company_id"); err != nil {
		return q, 0, err
	}
	if q.TargetEpCompanyID, err = queryInt64(ctx, "target_ep_company_id"); err != nil {
		return q, 0, err
	}
	return q, page, nil
}

func (c *EntryRequestController) FindByID(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.entryRequestService.FindByID(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "entry request fetched", res)
}

func (c *EntryRequestController) History(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.entryRequestService.History(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "history fetched", res)
}

// transitionHandler binds the body for one workflow operation and returns the
// updated request.
func transitionHandler[T any](c *EntryRequestController, message string, run func(ctx context.Context, id int64, d T) (*entities.EntryRequest, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
		defer cancel()

		id, err := parseIDParam(ctx, "id")
		if err != nil {
			return api.ErrorResponse(ctx, err, c.logger)
		}
		var d T
		if err := bindAndValidate(ctx, &d); err != nil {
			return api.ErrorResponse(ctx, err, c.logger)
		}
		res, err := run(reqCtx, id, d)
		if err != nil {
			return api.ErrorResponse(ctx, err, c.logger)
		}
		return api.SuccessOne(ctx, http.StatusOK, message, res)
	}
}

func (c *EntryRequestController) StartBpReview() echo.HandlerFunc {
	return transitionHandler(c, "bp review started", c.entryRequestService.StartBpReview)
}

func (c *EntryRequestController) BpApprove() echo.HandlerFunc {
	return transitionHandler(c, "bp approved", c.entryRequestService.BpApprove)
}

func (c *EntryRequestController) StartEpReview() echo.HandlerFunc {
	return transitionHandler(c, "ep review started", c.entryRequestService.StartEpReview)
}

func (c *EntryRequestController) EpApprove() echo.HandlerFunc {
	return transitionHandler(c, "ep approved", c.entryRequestService.EpApprove)
}

func (c *EntryRequestController) Reject() echo.HandlerFunc {
	return transitionHandler(c, "entry request rejected", c.entryRequestService.Reject)
}

func (c *EntryRequestController) Cancel() echo.HandlerFunc {
	return transitionHandler(c, "entry request cancelled", c.entryRequestService.Cancel)
}

func (c *EntryRequestController) UploadWorkPlan(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("multipart field 'file' is required"), c.logger)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	defer file.Close()

	res, err := c.entryRequestService.UploadWorkPlan(reqCtx, id, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "work plan uploaded", res)
}
