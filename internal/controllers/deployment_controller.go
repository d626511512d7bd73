package controllers

import (
	"fmt"
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

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DeploymentController struct {
	deploymentService services.DeploymentServiceInterface
	reportService     services.DeploymentReportServiceInterface
	timeout           time.Duration
	logger            *zap.Logger
}

func NewDeploymentController(
	deploymentService services.DeploymentServiceInterface,
	reportService services.DeploymentReportServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *DeploymentController {
	return &DeploymentController{
		deploymentService: deploymentService,
		reportService:     reportService,
		timeout:           timeout,
		logger:            logger,
	}
}

func (c *DeploymentController) Create(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	var d dto.CreateDeploymentDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.Create(reqCtx, d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "deployment created", res)
}

func (c *DeploymentController) List(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	q, page, err := parseDeploymentQuery(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	list, total, err := c.deploymentService.List(reqCtx, q)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "deployments fetched", list, total, int(page), int(q.Limit))
}

func parseDeploymentQuery(ctx echo.Context) (dto.DeploymentListQuery, uint64, error) {
	var q dto.DeploymentListQuery
	limit, offset, page := utils.ParsePaginationParams(ctx.QueryParams())
	q.Limit, q.Offset = limit, offset

	if raw := ctx.QueryParam("status"); raw != "" {
		status, err := entities.ParseDeploymentStatus(raw)
		if err != nil {
			return q, 0, apperrors.NewInvalidInputError("unknown status %q", raw)
		}
		q.Status = &status
	}

	var err error
	if q.OwnerID, err = queryInt64(ctx, "owner_id"); err != nil {
		return q, 0, err
	}
	if q.BpCompanyID, err = queryInt64(ctx, "bp_company_id"); err != nil {
		return q, 0, err
	}
	if q.EpCompanyID, err = queryInt64(ctx, "ep_company_id"); err != nil {
		return q, 0, err
	}
	if q.WorkerID, err = queryInt64(ctx, "worker_id"); err != nil {
		return q, 0, err
	}
	return q, page, nil
}

func (c *DeploymentController) Current(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.deploymentService.CurrentForActor(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "current deployment fetched", res)
}

// Export streams every visible deployment matching the filter as XLSX.
func (c *DeploymentController) Export(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	q, _, err := parseDeploymentQuery(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	f, err := c.reportService.BuildXLSX(reqCtx, q)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	defer f.Close()

	fileName := fmt.Sprintf("deployments_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}

func (c *DeploymentController) FindByID(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.FindByID(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "deployment fetched", res)
}

func (c *DeploymentController) Notes(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.Notes(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "deployment notes fetched", res)
}

func (c *DeploymentController) Extend(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	var d dto.ExtendDeploymentDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.Extend(reqCtx, id, d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "deployment extended", res)
}

func (c *DeploymentController) ChangeWorker(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	var d dto.ChangeWorkerDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.ChangeWorker(reqCtx, id, d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "deployment worker changed", res)
}

func (c *DeploymentController) Complete(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	var d dto.CompleteDeploymentDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res, err := c.deploymentService.Complete(reqCtx, id, d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "deployment completed", res)
}
