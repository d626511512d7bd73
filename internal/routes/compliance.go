package routes

import (
	"github.com/labstack/echo/v4"

	"site-entry/internal/controllers"
)

func runComplianceRouter(secureGroup *echo.Group, ctrl *controllers.ComplianceController) {
	secureGroup.POST("/compliance/validate", ctrl.Validate)
}
