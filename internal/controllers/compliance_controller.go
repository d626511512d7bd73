package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"site-entry/internal/dto"
	"site-entry/internal/services"
	"site-entry/pkg/api"
	"site-entry/pkg/utils"
)

type ComplianceController struct {
	complianceService services.ComplianceServiceInterface
	timeout           time.Duration
	logger            *zap.Logger
}

func NewComplianceController(complianceService services.ComplianceServiceInterface, timeout time.Duration, logger *zap.Logger) *ComplianceController {
	return &ComplianceController{complianceService: complianceService, timeout: timeout, logger: logger}
}

// Validate reports on the given resources. An invalid report is still a 200;
// only entry request creation turns issues into an error.
func (c *ComplianceController) Validate(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	var d dto.ValidateComplianceDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	report, err := c.complianceService.Validate(reqCtx, d.EquipmentIDs, d.WorkerIDs)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "compliance report built", report)
}
